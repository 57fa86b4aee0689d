package videoframe

// StreamMetadata is what a decoder knows about the stream up front.
// FrameCount may be zero when the container does not say.
type StreamMetadata struct {
	Dimensions Dimensions
	FrameRate  Rational
	FrameCount int
}
