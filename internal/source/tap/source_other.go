//go:build !linux

package tap

import (
	"fmt"
	"runtime"

	"firestige.xyz/arpreflect/internal/source"
)

func init() {
	source.Register(Name, func(map[string]interface{}) (source.Source, error) {
		return nil, fmt.Errorf("tap source is not supported on %s", runtime.GOOS)
	})
}
