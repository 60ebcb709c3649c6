package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/cloudjanitor/snapreaper"
	"github.com/inconshreveable/log15"
)

// handler runs one cleanup pass. The event payload and invocation
// context are both unused; the schedule and the credentials/region all
// come from the hosting environment.
func handler(ctx context.Context, event json.RawMessage) error {
	logger := log15.New()
	logger.SetHandler(
		log15.LvlFilterHandler(
			log15.LvlInfo,
			log15.StreamHandler(os.Stdout, log15.LogfmtFormat()),
		),
	)
	sess, err := session.NewSession()
	if err != nil {
		return err
	}
	rpr, err := snapreaper.New(&snapreaper.ReaperInput{
		Session: sess,
		Logger:  &logger,
	})
	if err != nil {
		return err
	}
	return rpr.Run()
}

func main() {
	lambda.Start(handler)
}
