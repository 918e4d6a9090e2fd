package bot

import (
	"log/slog"
	"sort"

	"tiergate/entity"
)

// subscription is one admin chat's notification filter. An empty topic set
// means every topic.
type subscription struct {
	enabled bool
	level   slog.Level
	topics  map[string]bool
}

func newSubscriptions(adminIds []int64) map[int64]*subscription {
	subs := make(map[int64]*subscription, len(adminIds))
	for _, id := range adminIds {
		subs[id] = &subscription{enabled: true, level: slog.LevelInfo, topics: map[string]bool{}}
	}
	return subs
}

func (s *subscription) wants(level slog.Level, topic string) bool {
	if !s.enabled || level < s.level {
		return false
	}
	return len(s.topics) == 0 || s.topics[topic]
}

func (s *subscription) topicList() []string {
	list := make([]string, 0, len(s.topics))
	for topic := range s.topics {
		list = append(list, topic)
	}
	sort.Strings(list)
	return list
}

// SendMessageWithTopic delivers msg to every admin whose level and topic
// filter accept it.
func (t *TgBot) SendMessageWithTopic(msg string, level slog.Level, topic string) {
	if topic == "" {
		topic = entity.TopicSystem
	}

	t.mu.RLock()
	var targets []int64
	for id, sub := range t.subs {
		if sub.wants(level, topic) {
			targets = append(targets, id)
		}
	}
	t.mu.RUnlock()

	for _, id := range targets {
		t.send(id, msg)
	}
}

// update applies fn to an admin's subscription; it reports false for chats
// that are not admins.
func (t *TgBot) update(chatId int64, fn func(s *subscription)) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	sub, ok := t.subs[chatId]
	if !ok {
		return false
	}
	fn(sub)
	return true
}

// snapshot returns a copy of an admin's subscription.
func (t *TgBot) snapshot(chatId int64) (subscription, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	sub, ok := t.subs[chatId]
	if !ok {
		return subscription{}, false
	}
	cp := *sub
	cp.topics = make(map[string]bool, len(sub.topics))
	for k, v := range sub.topics {
		cp.topics[k] = v
	}
	return cp, true
}

func (t *TgBot) adminIds() []int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ids := make([]int64, 0, len(t.subs))
	for id := range t.subs {
		ids = append(ids, id)
	}
	return ids
}

func (t *TgBot) isAdmin(chatId int64) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.subs[chatId]
	return ok
}
