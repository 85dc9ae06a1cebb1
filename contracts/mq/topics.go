package mq

import "strings"

// Topic kinds, the last segment of every bus topic.
const (
	KindMilestones    = "milestones"
	KindDocuments     = "documents"
	KindMessages      = "messages"
	KindNotifications = "notifications"
)

// 这些 topic 名称会被外部订阅者直接使用，格式不能改
func MilestonesTopic(projectID string) string {
	return "project:" + projectID + ":" + KindMilestones
}

func DocumentsTopic(projectID string) string {
	return "project:" + projectID + ":" + KindDocuments
}

func MessagesTopic(projectID string) string {
	return "project:" + projectID + ":" + KindMessages
}

func NotificationsTopic(userID string) string {
	return "user:" + userID + ":" + KindNotifications
}

// RoutingKey maps a bus topic to an AMQP topic-exchange routing key,
// e.g. "project:p1:milestones" -> "project.p1.milestones".
func RoutingKey(topic string) string {
	return strings.ReplaceAll(topic, ":", ".")
}

// TopicKind returns the trailing kind segment of a topic or routing key.
func TopicKind(topic string) string {
	i := strings.LastIndexAny(topic, ":.")
	if i < 0 {
		return topic
	}
	return topic[i+1:]
}

// ParseProjectRoutingKey splits "project.{id}.{kind}" into its parts.
func ParseProjectRoutingKey(key string) (projectID, kind string, ok bool) {
	rest, found := strings.CutPrefix(key, "project.")
	if !found {
		return "", "", false
	}
	i := strings.LastIndex(rest, ".")
	if i <= 0 || i == len(rest)-1 {
		return "", "", false
	}
	return rest[:i], rest[i+1:], true
}
