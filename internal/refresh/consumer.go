package refresh

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// Reader is the part of *kafka.Reader the consumer uses. Tests replace it.
type Reader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads bucket notifications from a Kafka topic and hands them out on a
// channel. Offsets are committed explicitly once a message has been handled.
type Consumer struct {
	reader      Reader
	doneChan    chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup
	messageChan chan kafka.Message
	backoff     time.Duration
}

func NewConsumer(topic, groupID, broker string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        []string{broker},
		Topic:          topic,
		GroupID:        groupID,
		CommitInterval: 0,
		MinBytes:       1,
		MaxBytes:       10e6,
	})
	return newConsumer(reader)
}

func newConsumer(reader Reader) *Consumer {
	return &Consumer{
		reader:      reader,
		doneChan:    make(chan struct{}),
		messageChan: make(chan kafka.Message),
		backoff:     time.Second,
	}
}

func (c *Consumer) Messages() <-chan kafka.Message {
	return c.messageChan
}

func (c *Consumer) CommitOffset(ctx context.Context, msg kafka.Message) error {
	return c.reader.CommitMessages(ctx, msg)
}

// Start runs the read loop in its own goroutine until ctx is canceled, Stop is
// called or the reader is closed. The message channel is closed when it exits.
func (c *Consumer) Start(ctx context.Context) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer close(c.messageChan)

		log.Println("Starting dataset event consumer...")
		for {
			select {
			case <-ctx.Done():
				return
			case <-c.doneChan:
				return
			default:
			}

			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
					return
				}
				log.Printf("Error reading dataset event: %v", err)
				select {
				case <-time.After(c.backoff):
				case <-ctx.Done():
					return
				case <-c.doneChan:
					return
				}
				continue
			}

			select {
			case c.messageChan <- msg:
			case <-ctx.Done():
				return
			case <-c.doneChan:
				return
			}
		}
	}()
}

// Stop ends the read loop and closes the reader. It is safe to call more than once.
func (c *Consumer) Stop() {
	c.stopOnce.Do(func() {
		close(c.doneChan)
		// closing the reader unblocks a pending ReadMessage with io.EOF
		if err := c.reader.Close(); err != nil {
			log.Printf("Failed to close Kafka reader: %v", err)
		}
		c.wg.Wait()
		log.Println("Dataset event consumer stopped.")
	})
}
