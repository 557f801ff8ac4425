// Package environment reads deployment settings from the process
// environment, optionally seeded from a .env file.
package environment

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type EnvConfig struct {
	LogLevel string

	NatsURL     string
	NatsSubject string

	SqsURL    string
	AwsRegion string

	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3Prefix    string
	S3UseSSL    bool

	LedgerPath string
}

const DefaultNatsSubject = "autograder.events"

// ReadEnvConfig loads the given .env files (".env" when none are named)
// and reads the GRADER_* variables. Variables already set in the process
// environment win over the files. A missing file is not an error.
func ReadEnvConfig(files ...string) (*EnvConfig, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		err := godotenv.Load(f)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("error loading %s: %w", f, err)
		}
	}

	result := &EnvConfig{
		LogLevel:    os.Getenv("GRADER_LOG_LEVEL"),
		NatsURL:     os.Getenv("GRADER_NATS_URL"),
		NatsSubject: os.Getenv("GRADER_NATS_SUBJECT"),
		SqsURL:      os.Getenv("GRADER_SQS_URL"),
		AwsRegion:   os.Getenv("AWS_REGION"),
		S3Endpoint:  os.Getenv("GRADER_S3_ENDPOINT"),
		S3AccessKey: os.Getenv("GRADER_S3_ACCESS_KEY"),
		S3SecretKey: os.Getenv("GRADER_S3_SECRET_KEY"),
		S3Bucket:    os.Getenv("GRADER_S3_BUCKET"),
		S3Prefix:    os.Getenv("GRADER_S3_PREFIX"),
		LedgerPath:  os.Getenv("GRADER_LEDGER_PATH"),
	}
	if result.NatsSubject == "" {
		result.NatsSubject = DefaultNatsSubject
	}

	if v := os.Getenv("GRADER_S3_SSL"); v != "" {
		ssl, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid GRADER_S3_SSL %q: %w", v, err)
		}
		result.S3UseSSL = ssl
	}

	return result, nil
}
