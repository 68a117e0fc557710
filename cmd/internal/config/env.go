package config

import (
	"context"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/joho/godotenv"
	"github.com/labstack/gommon/log"
)

const (
	envVarsPrefix = "/clinicalnotes/prod/"
	ssmRegion     = "us-east-2"
)

// LoadEnv exports configuration into the process environment. Production
// pulls everything from AWS SSM Parameter Store, other environments read
// an optional .env file.
func LoadEnv(ctx context.Context) error {
	if os.Getenv(KeyGoEnv) == "production" {
		return loadProdEnv(ctx)
	}

	err := godotenv.Load()
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func loadProdEnv(ctx context.Context) error {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(ssmRegion))
	if err != nil {
		return err
	}

	client := ssm.NewFromConfig(cfg)
	paginator := ssm.NewGetParametersByPathPaginator(client, &ssm.GetParametersByPathInput{
		Path:           aws.String(envVarsPrefix),
		WithDecryption: aws.Bool(true),
		Recursive:      aws.Bool(true),
	})

	prefixLength := len(envVarsPrefix)
	loaded := 0
	for paginator.HasMorePages() {
		out, err := paginator.NextPage(ctx)
		if err != nil {
			return err
		}

		for _, param := range out.Parameters {
			key := aws.ToString(param.Name)[prefixLength:]
			if err := os.Setenv(key, aws.ToString(param.Value)); err != nil {
				return err
			}
			loaded++
		}
	}
	log.Debugf("loaded %d prod environment variables", loaded)
	return nil
}
