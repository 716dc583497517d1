package scoring

// Weights applied to text classifier output when scoring general toxicity.
var ToxicityWeights = ScoreMap{
	"obscene":       0.2,
	"insult":        0.2,
	"threat":        0.2,
	"toxic":         0.8,
	"identity_hate": 0.2,
	"severe_toxic":  0.7,
	"neutral":       0.0,
}

var ToxicityNegativeWeights = ScoreMap{
	"neutral": 0.7,
}

// Weights applied to the same text classifier output when scoring hate speech. Identity-based hate dominates.
var HatespeechWeights = ScoreMap{
	"obscene":       0.15,
	"insult":        0.15,
	"threat":        0.15,
	"toxic":         0.0,
	"identity_hate": 0.5,
	"severe_toxic":  0.3,
	"neutral":       0.0,
}

var HatespeechNegativeWeights = ScoreMap{
	"neutral": 0.5,
}

// Weights for image region detector classes, plus the whole-image NSFW model score ("NSFW_MODEL").
var NudityWeights = ScoreMap{
	"FEMALE_GENITALIA_COVERED": 0.25,
	"FACE_FEMALE":              0.0,
	"BUTTOCKS_EXPOSED":         0.35,
	"FEMALE_BREAST_EXPOSED":    0.85,
	"FEMALE_GENITALIA_EXPOSED": 0.9,
	"MALE_BREAST_EXPOSED":      0.1,
	"ANUS_EXPOSED":             0.35,
	"FEET_EXPOSED":             0.05,
	"BELLY_COVERED":            0.0,
	"FEET_COVERED":             0.0,
	"ARMPITS_COVERED":          0.0,
	"ARMPITS_EXPOSED":          0.15,
	"FACE_MALE":                0.0,
	"BELLY_EXPOSED":            0.45,
	"MALE_GENITALIA_EXPOSED":   0.9,
	"ANUS_COVERED":             0.0,
	"FEMALE_BREAST_COVERED":    0.15,
	"BUTTOCKS_COVERED":         0.1,
	NSFWModelLabel:             0.9,
}

// Covered regions pull the nudity score down.
var NudityNegativeWeights = ScoreMap{
	"FEMALE_GENITALIA_COVERED": 0.25,
	"BELLY_COVERED":            0.25,
	"FEET_COVERED":             0.25,
	"ARMPITS_COVERED":          0.25,
	"ANUS_COVERED":             0.25,
	"FEMALE_BREAST_COVERED":    0.25,
	"BUTTOCKS_COVERED":         0.25,
}

// Label under which the whole-image NSFW model probability is merged in to nudity detector output.
const NSFWModelLabel = "NSFW_MODEL"
