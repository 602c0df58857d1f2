package audit

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

type SNSPublisher interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Notifier tells the staff topic about order operations.
type Notifier struct {
	sns      SNSPublisher
	topicARN string
}

func NewNotifier(client SNSPublisher, topicARN string) *Notifier {
	return &Notifier{sns: client, topicARN: topicARN}
}

func (n *Notifier) Notify(ctx context.Context, op Operation) error {
	_, err := n.sns.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(n.topicARN),
		Subject:  aws.String(Subject(op)),
		Message:  aws.String(Message(op)),
	})
	if err != nil {
		return fmt.Errorf("sns publish %s: %w", op.ID, err)
	}
	return nil
}

const subjectLimit = 100

// Subject stays within SNS's 100 character limit, cut on a rune boundary.
func Subject(op Operation) string {
	s := fmt.Sprintf("[%s] %s: %s", op.Shop, op.Kind, strings.Join(op.SourceOrders, ", "))
	if utf8.RuneCountInString(s) <= subjectLimit {
		return s
	}
	r := []rune(s)
	return string(r[:subjectLimit-3]) + "..."
}

func Message(op Operation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Shop: %s\n", op.Shop)
	fmt.Fprintf(&b, "Operation: %s (%s)\n", op.Kind, op.ID)
	fmt.Fprintf(&b, "At: %s\n", op.CreatedAt)
	if len(op.SourceOrders) > 0 {
		fmt.Fprintf(&b, "Source orders: %s\n", strings.Join(op.SourceOrders, ", "))
	}
	if len(op.CreatedOrders) > 0 {
		fmt.Fprintf(&b, "Created orders: %s\n", strings.Join(op.CreatedOrders, ", "))
	}
	if len(op.DraftOrders) > 0 {
		fmt.Fprintf(&b, "Draft orders: %s\n", strings.Join(op.DraftOrders, ", "))
	}
	if len(op.CancelledOrders) > 0 {
		fmt.Fprintf(&b, "Cancelled orders: %s\n", strings.Join(op.CancelledOrders, ", "))
	}
	return b.String()
}
