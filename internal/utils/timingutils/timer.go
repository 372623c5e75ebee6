package timingutils

import (
	"time"

	"github.com/JasonRUAN/SecureFileShare/internal/global"
	log "github.com/sirupsen/logrus"
)

// SlowOperationThreshold 为耗时告警阈值。超过该值的操作即使未开启计时日志也会以 warn 级别输出。
var SlowOperationThreshold = 30 * time.Second

// GetDeferrableTimingLogger 在调用时开始计时，返回的函数在被 defer 调用时输出耗时。
//
//   defer timingutils.GetDeferrableTimingLogger("上传一批文件")()
func GetDeferrableTimingLogger(message string) func() {
	start := time.Now()
	return func() {
		logElapsed(message, time.Since(start))
	}
}

func logElapsed(message string, elapsed time.Duration) {
	if SlowOperationThreshold > 0 && elapsed >= SlowOperationThreshold {
		log.Warnf("%v 耗时过长: %v", message, elapsed)
		return
	}

	if global.ShowTimingLogs {
		log.Debugf("%v: %v", message, elapsed)
	}
}
