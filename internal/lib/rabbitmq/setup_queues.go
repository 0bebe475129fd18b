package rabbitmq

// QueueConfig описывает очередь и её ключ маршрутизации
// в обменнике notifications.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// GetNotificationQueues возвращает очереди жизненного цикла грейс-периода.
func GetNotificationQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: "notification.grace_granted", RoutingKey: "grace_granted"},
		{QueueName: "notification.grace_expired", RoutingKey: "grace_expired"},
	}
}
