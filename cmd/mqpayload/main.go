// Command mqpayload sends and consumes SQS messages with large payload
// support.
//
//	mqpayload send --queue orders --action CREATE --body-file order.json
//	mqpayload consume --queue orders --max-messages 5
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/umran/mqpayload"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "mqpayload:", err)
		os.Exit(1)
	}
}

type globalFlags struct {
	configPath  string
	envFile     string
	queueName   string
	queueURL    string
	metricsAddr string
}

func run(args []string) error {
	if len(args) == 0 {
		return errors.New("usage: mqpayload send|consume [flags]")
	}

	command, args := args[0], args[1:]

	flags := pflag.NewFlagSet(command, pflag.ContinueOnError)
	var global globalFlags
	flags.StringVar(&global.configPath, "config", "", "YAML config file (environment is used when empty)")
	flags.StringVar(&global.envFile, "env-file", ".env", "dotenv file loaded when --config is empty")
	flags.StringVar(&global.queueName, "queue", "", "queue name, resolved with the configured account")
	flags.StringVar(&global.queueURL, "queue-url", "", "queue url, overrides --queue")
	flags.StringVar(&global.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")

	switch command {
	case "send":
		action := flags.String("action", string(mqpayload.ActionDefault), "message action (CREATE, UPDATE, DELETE, PATCH, DEFAULT)")
		requestID := flags.String("request-id", "", "optional request id")
		body := flags.String("body", "", "message payload")
		bodyFile := flags.String("body-file", "", "read the payload from this file, - for stdin")
		if err := flags.Parse(args); err != nil {
			return err
		}

		payload, err := readPayload(*body, *bodyFile)
		if err != nil {
			return err
		}

		ctx := context.Background()
		client, logger, err := newClient(global)
		if err != nil {
			return err
		}
		queueURL, err := resolveQueue(ctx, client, global)
		if err != nil {
			return err
		}
		return send(ctx, client, logger, queueURL, payload, mqpayload.Action(*action), *requestID)

	case "consume":
		maxMessages := flags.Int("max-messages", 5, "messages per poll (1-10)")
		ack := flags.Bool("delete", true, "delete messages after they are handled")
		if err := flags.Parse(args); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		client, logger, err := newClient(global)
		if err != nil {
			return err
		}
		queueURL, err := resolveQueue(ctx, client, global)
		if err != nil {
			return err
		}

		err = consume(ctx, client, logger, queueURL, *maxMessages, *ack)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err

	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func newClient(global globalFlags) (*mqpayload.Client, *logrus.Logger, error) {
	var (
		config *mqpayload.Config
		err    error
	)
	if global.configPath != "" {
		config, err = mqpayload.LoadConfig(global.configPath)
	} else {
		config, err = mqpayload.ConfigFromEnv(global.envFile)
	}
	if err != nil {
		return nil, nil, err
	}

	logger := mqpayload.NewLogger(os.Stderr, config.LogLevel)
	opts := []mqpayload.Option{mqpayload.WithLogger(logger)}

	if global.metricsAddr != "" {
		registry := prometheus.NewRegistry()
		metrics, err := mqpayload.NewPrometheusMetrics(registry)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, mqpayload.WithMetrics(metrics))

		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
			if err := http.ListenAndServe(global.metricsAddr, mux); err != nil {
				logger.WithError(err).Error("metrics server stopped")
			}
		}()
	}

	client, err := mqpayload.NewAWSClient(config, opts...)
	if err != nil {
		return nil, nil, err
	}

	return client, logger, nil
}

func resolveQueue(ctx context.Context, client *mqpayload.Client, global globalFlags) (string, error) {
	if global.queueURL != "" {
		return global.queueURL, nil
	}
	return client.QueueURL(ctx, global.queueName)
}

func readPayload(body, bodyFile string) (string, error) {
	switch bodyFile {
	case "":
		return body, nil
	case "-":
		data, err := io.ReadAll(os.Stdin)
		return string(data), err
	default:
		data, err := os.ReadFile(bodyFile)
		return string(data), err
	}
}

func send(ctx context.Context, sender mqpayload.Sender, logger logrus.FieldLogger, queueURL, payload string, action mqpayload.Action, requestID string) error {
	body, err := mqpayload.FormatMessage(payload, action, requestID)
	if err != nil {
		return err
	}

	id, err := sender.Send(ctx, queueURL, &mqpayload.Message{Body: body})
	if err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{"message_id": id, "size": len(body)}).Info("message sent")
	return nil
}

type consumerDeleter interface {
	mqpayload.Consumer
	mqpayload.Deleter
}

func consume(ctx context.Context, client consumerDeleter, logger logrus.FieldLogger, queueURL string, maxMessages int, ack bool) error {
	request := &mqpayload.ReceiveRequest{MaxMessages: maxMessages}

	return client.Consume(ctx, queueURL, request, func(ctx context.Context, message *mqpayload.Message) error {
		logger.WithFields(logrus.Fields{
			"message_id": message.ID,
			"size":       len(message.Body),
		}).Info("message received")

		if envelope, err := mqpayload.ParseEnvelope(message.Body); err == nil {
			logger.WithFields(logrus.Fields{
				"message_id": message.ID,
				"action":     envelope.Action,
				"request_id": envelope.RequestID,
			}).Info("envelope decoded")
		}

		if !ack {
			return nil
		}
		return client.Delete(ctx, queueURL, message.ReceiptHandle)
	})
}
