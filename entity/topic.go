// Package entity defines domain types shared across the application.

package entity

// Notification topics used to categorize operator messages.
// Log calls can tag messages with sl.Topic(entity.TopicXxx).
const (
	TopicRegistration = "registration"
	TopicError        = "error"
	TopicSystem       = "system"
)

var allTopics = []string{
	TopicRegistration,
	TopicError,
	TopicSystem,
}

func AllTopics() []string {
	result := make([]string, len(allTopics))
	copy(result, allTopics)
	return result
}

func IsValidTopic(topic string) bool {
	for _, t := range allTopics {
		if t == topic {
			return true
		}
	}
	return false
}
