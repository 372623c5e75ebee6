package sqlmodel

import (
	"github.com/bwmarrin/snowflake"
)

func parseSnowflakeStringToInt64(str string) (int64, error) {
	sfID, err := snowflake.ParseString(str)
	if err != nil {
		return 0, err
	}

	return sfID.Int64(), nil
}

func parseInt64ToSnowflakeString(i int64) string {
	return snowflake.ParseInt64(i).String()
}

// ParseSnowflakeStrings 将一组 snowflake ID 字符串转为数据库中使用的 int64。
func ParseSnowflakeStrings(strs []string) ([]int64, error) {
	ret := make([]int64, 0, len(strs))
	for _, str := range strs {
		i, err := parseSnowflakeStringToInt64(str)
		if err != nil {
			return nil, err
		}
		ret = append(ret, i)
	}

	return ret, nil
}
