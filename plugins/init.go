// Package plugins registers all built-in frame sources.
package plugins

import (
	// Each source registers itself with internal/source in init.
	_ "firestige.xyz/arpreflect/internal/source/afpacket"
	_ "firestige.xyz/arpreflect/internal/source/file"
	_ "firestige.xyz/arpreflect/internal/source/tap"
)
