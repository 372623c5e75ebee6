package controller

// GeneralResponse is the body sent along with an unsuccessful status.
type GeneralResponse struct {
	Errors ParameterErrorList `json:"errors,omitempty"`
	Msg    string             `json:"msg,omitempty"`
}

// NewFromErrors creates a GeneralResponse with parameter errors.
func NewFromErrors(errors *ParameterErrorList) *GeneralResponse {
	return &GeneralResponse{Errors: *errors}
}

// NewFromMsg creates a GeneralResponse with a string message.
func NewFromMsg(msg string) *GeneralResponse {
	return &GeneralResponse{Msg: msg}
}
