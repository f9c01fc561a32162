// internal/notify/sns.go
package notify

import (
	"context"
	"strconv"
	"strings"

	"deal-tracker/internal/models"
)

// TopicPublisher is satisfied by the SNS client in internal/common/aws.
type TopicPublisher interface {
	PublishMessage(ctx context.Context, topicARN, subject, message string, attrs map[string]string) (string, error)
}

type SNSNotifier struct {
	publisher TopicPublisher
	topicARN  string
}

func NewSNSNotifier(publisher TopicPublisher, topicARN string) *SNSNotifier {
	return &SNSNotifier{publisher: publisher, topicARN: topicARN}
}

func (s *SNSNotifier) Name() string { return "sns" }

func (s *SNSNotifier) Send(ctx context.Context, records []models.DealRecord) error {
	message := Headline(len(records)) + "\n" + strings.Join(PlainLines(records), "\n")
	_, err := s.publisher.PublishMessage(ctx, s.topicARN, Headline(len(records)), message, map[string]string{
		"dealCount": strconv.Itoa(len(records)),
	})
	return err
}
