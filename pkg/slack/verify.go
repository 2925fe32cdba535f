package slack

import (
	"fmt"
	"net/http"

	goslack "github.com/slack-go/slack"

	"AttendanceBot/pkg/errors"
)

// VerifyRequest 校验 X-Slack-Signature 与 X-Slack-Request-Timestamp
func VerifyRequest(header http.Header, body []byte, signingSecret string) error {
	sv, err := goslack.NewSecretsVerifier(header, signingSecret)
	if err != nil {
		return fmt.Errorf("%w: %v", errors.InvalidSignature, err)
	}
	if _, err := sv.Write(body); err != nil {
		return fmt.Errorf("%w: %v", errors.InvalidSignature, err)
	}
	if err := sv.Ensure(); err != nil {
		return fmt.Errorf("%w: %v", errors.InvalidSignature, err)
	}
	return nil
}
