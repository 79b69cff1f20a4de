package kafka

// Topic definitions for Kafka event streaming
const (
	// Option lifecycle events
	TopicOptionBought    = "options.bought"
	TopicOptionLocked    = "options.locked"
	TopicOptionExercised = "options.exercised"
	TopicOptionExpired   = "options.expired"

	// Liquidity events
	TopicPremiumDistributed = "liquidity.premium_distributed"
)
