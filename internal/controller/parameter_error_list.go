package controller

import (
	"strconv"
	"strings"
)

// ParameterErrorList contains a list of human-readable errors about parameters.
type ParameterErrorList []string

// AppendIfEmptyOrBlankSpaces appends the error message specified if `str` is empty or contains only blank spaces.
//
// Parameters:
//   the string to be checked
//   the error message to append
//
// Returns:
//   the trimmed string
func (pel *ParameterErrorList) AppendIfEmptyOrBlankSpaces(str string, errMsg string) string {
	if str = strings.TrimSpace(str); str == "" {
		*pel = append(*pel, errMsg)
	}

	return str
}

// AppendIfNotUint64 appends the error message specified if `str` is not an uint64.
//
// Parameters:
//   the string to be checked
//   the error message to append
//
// Returns:
//   the parsed uint64 or 0 if there's error
func (pel *ParameterErrorList) AppendIfNotUint64(str string, errMsg string) uint64 {
	ret, err := strconv.ParseUint(strings.TrimSpace(str), 10, 64)
	if err != nil {
		*pel = append(*pel, errMsg)
		return 0
	}

	return ret
}

// AppendIfNotPositiveUint64 appends the error message specified if `str` is not a positive uint64.
func (pel *ParameterErrorList) AppendIfNotPositiveUint64(str string, errMsg string) uint64 {
	ret, err := strconv.ParseUint(strings.TrimSpace(str), 10, 64)
	if err != nil || ret == 0 {
		*pel = append(*pel, errMsg)
		return 0
	}

	return ret
}

// AppendIfAnyEmptyOrBlankSpaces appends the error message specified once if any of `strs` is empty or blank.
//
// Returns:
//   the trimmed strings
func (pel *ParameterErrorList) AppendIfAnyEmptyOrBlankSpaces(strs []string, errMsg string) []string {
	ret := make([]string, 0, len(strs))
	hasBlank := false
	for _, str := range strs {
		str = strings.TrimSpace(str)
		if str == "" {
			hasBlank = true
		}
		ret = append(ret, str)
	}

	if hasBlank {
		*pel = append(*pel, errMsg)
	}

	return ret
}
