//go:build !linux

package afpacket

import (
	"fmt"
	"runtime"

	"firestige.xyz/arpreflect/internal/source"
)

func init() {
	source.Register(Name, func(map[string]interface{}) (source.Source, error) {
		return nil, fmt.Errorf("af_packet capture is not supported on %s", runtime.GOOS)
	})
}
