package model

// Classification is the closed taxonomy a processed reply can receive.
// The pipeline never stores a value outside this set.
type Classification string

const (
	ClassInterested    Classification = "INTERESTED"
	ClassNotInterested Classification = "NOT_INTERESTED"
	ClassUnsubscribe   Classification = "UNSUBSCRIBE"
	ClassOOO           Classification = "OOO"
	ClassRedirect      Classification = "REDIRECT"
	ClassBounce        Classification = "BOUNCE"
	ClassOther         Classification = "OTHER"

	// Dispositions recorded outside the reply taxonomy.
	ClassInternalWarmup Classification = "INTERNAL_WARMUP"
	ClassNotOurCampaign Classification = "NOT_OUR_CAMPAIGN"
)

// Valid reports whether c is a member of the reply taxonomy or one of the
// recorded dispositions.
func (c Classification) Valid() bool {
	return c.ReplyLabel() || c == ClassInternalWarmup || c == ClassNotOurCampaign
}

// ReplyLabel reports whether c is one of the seven labels the reply
// classifier may assign. Dispositions are recorded by provenance routing
// only and never come from the classifier.
func (c Classification) ReplyLabel() bool {
	switch c {
	case ClassInterested, ClassNotInterested, ClassUnsubscribe, ClassOOO,
		ClassRedirect, ClassBounce, ClassOther:
		return true
	}
	return false
}

// Sentiment values attached to classified replies.
const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
)

// BlockReason explains why a lead was moved to LeadStatusBlocked.
type BlockReason string

const (
	BlockReasonUnsubscribe   BlockReason = "UNSUBSCRIBE"
	BlockReasonNotInterested BlockReason = "NOT_INTERESTED"
	BlockReasonBounce        BlockReason = "BOUNCE"
)
