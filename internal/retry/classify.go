package retry

import (
	"strings"

	"github.com/fntelecomllc/kbagent/internal/agenterrors"
	"github.com/fntelecomllc/kbagent/internal/models"
)

// substring heuristics, checked in this order, case-insensitive. Ground:
// error_management_service.go's ClassifyError, which walks an ordered list
// of keyword sets before falling back to a default bucket.
var classificationRules = []struct {
	failureType models.FailureTypeEnum
	substrings  []string
}{
	{models.FailureNetworkError, []string{"connection", "timeout", "network", "dns", "socket"}},
	{models.FailureRateLimit, []string{"rate limit", "too many requests", "429", "throttle"}},
	{models.FailureConfigurationError, []string{"config", "permission", "auth", "forbidden", "401", "403"}},
	{models.FailureDataError, []string{"json", "parse", "format", "encoding", "validation"}},
	{models.FailurePermanentError, []string{"not found", "404", "deleted", "suspended", "permanent"}},
}

// kindToFailureType maps a typed AgentError's Kind directly to a
// FailureTypeEnum, bypassing substring matching entirely when the caller
// already knows the failure's classification.
var kindToFailureType = map[agenterrors.Kind]models.FailureTypeEnum{
	agenterrors.KindNetwork:    models.FailureNetworkError,
	agenterrors.KindRateLimit:  models.FailureRateLimit,
	agenterrors.KindData:       models.FailureDataError,
	agenterrors.KindPermanent:  models.FailurePermanentError,
	agenterrors.KindTimeout:    models.FailureNetworkError,
}

// Classify determines the FailureTypeEnum for err. A typed *AgentError is
// matched directly by Kind first; anything else (including errors from
// third-party clients) falls back to case-insensitive substring matching
// against its message text, defaulting to TEMPORARY_ERROR when nothing
// matches.
func Classify(err error) models.FailureTypeEnum {
	if err == nil {
		return models.FailureTemporaryError
	}
	if kind, ok := agenterrors.KindOf(err); ok {
		if ft, ok := kindToFailureType[kind]; ok {
			return ft
		}
	}

	msg := strings.ToLower(err.Error())
	for _, rule := range classificationRules {
		for _, substr := range rule.substrings {
			if strings.Contains(msg, substr) {
				return rule.failureType
			}
		}
	}
	return models.FailureTemporaryError
}
