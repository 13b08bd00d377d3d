package chat

// EmotionLabels is indexed by classifier class id.
var EmotionLabels = [...]string{
	"공포", // fear
	"놀람", // surprise
	"분노", // anger
	"슬픔", // sadness
	"중립", // neutral
	"행복", // happiness
	"혐오", // disgust
}

const EmotionNeutral = "중립"

// IsEmotionLabel reports whether label is one of EmotionLabels.
func IsEmotionLabel(label string) bool {
	for _, l := range EmotionLabels {
		if l == label {
			return true
		}
	}
	return false
}
