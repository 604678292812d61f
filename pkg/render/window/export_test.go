package window

import (
	"time"

	"github.com/tauraamui/rgbdplay/pkg/video/videoframe"
)

func DepthToGray(depth videoframe.DepthMap) []byte {
	return depthToGray(depth)
}

func OverloadSleep(overload func(time.Duration)) func() {
	sleepRef := sleep
	sleep = overload
	return func() { sleep = sleepRef }
}
