package mqpayload

import (
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/sqs"
	"github.com/sirupsen/logrus"
)

// NewAWSClient returns a Client backed by SQS and S3. The AWS session is
// created once here and shared, unmodified, by every call on the returned
// Client. Extra options are applied after those derived from config.
func NewAWSClient(config *Config, opts ...Option) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	awsConfig := &aws.Config{
		Region: aws.String(config.Region),
	}
	if config.AccessKeyID != "" {
		awsConfig.Credentials = credentials.NewStaticCredentials(config.AccessKeyID, config.SecretAccessKey, "")
	}
	if config.Endpoint != "" {
		awsConfig.Endpoint = aws.String(config.Endpoint)
		awsConfig.S3ForcePathStyle = aws.Bool(true)
	}

	session, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, transportError("aws session", err)
	}

	configOpts, err := config.Options()
	if err != nil {
		return nil, err
	}
	opts = append(configOpts, opts...)

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.withDefaults().logger

	logger.WithFields(logrus.Fields{
		"region":  config.Region,
		"account": config.AccountID,
		"bucket":  config.Bucket,
	}).Debug("initialised aws session")

	store, err := NewS3Store(s3.New(session), config.Bucket, logger)
	if err != nil {
		return nil, err
	}

	return New(NewSQSQueue(sqs.New(session)), store, config.AccountID, opts...), nil
}
