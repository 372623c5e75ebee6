package idutils

import (
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/pkg/errors"
)

var (
	sfNode     *snowflake.Node
	sfNodeErr  error
	sfNodeOnce sync.Once
)

// GenerateSnowflakeId 生成一个 ID。同一进程内生成的 ID 不会重复。
func GenerateSnowflakeId() (string, error) {
	sfNodeOnce.Do(func() {
		sfNode, sfNodeErr = snowflake.NewNode(1)
	})
	if sfNodeErr != nil {
		return "", errors.Wrap(sfNodeErr, "无法生成 ID")
	}

	// Generate an ID
	return sfNode.Generate().String(), nil
}
