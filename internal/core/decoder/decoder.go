// Package decoder implements the Ethernet/ARP frame classifier.
package decoder

import "firestige.xyz/arpreflect/internal/core"

// FrameClassifier classifies raw frames into forward/drop verdicts.
type FrameClassifier interface {
	Classify(frame []byte) core.Verdict
	Inspect(frame []byte) Outcome
}
