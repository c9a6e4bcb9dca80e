package kafka

import (
	"context"
	"fmt"
	"strings"

	"skitbot/common"
	"skitbot/types"
)

// NewCompositionRequestHandler decodes composition requests and hands them to
// start. Malformed requests, and requests rejected as invalid or referring to
// missing records, are marked and skipped; other failures are left for redelivery.
func NewCompositionRequestHandler(start func(ctx context.Context, req types.CompositionRequest) error) *TypedMessageHandler[types.CompositionRequest] {
	return &TypedMessageHandler[types.CompositionRequest]{
		Validate: func(msg *types.CompositionRequest) error {
			if strings.TrimSpace(msg.TemplateID) == "" {
				return fmt.Errorf("template_id is required")
			}
			if strings.TrimSpace(msg.Plot) == "" {
				return fmt.Errorf("plot is required")
			}
			if msg.SubtitlePosition != "" && !msg.SubtitlePosition.Valid() {
				return fmt.Errorf("invalid subtitle_position %q", msg.SubtitlePosition)
			}
			return nil
		},
		Process: func(ctx context.Context, msg *types.CompositionRequest) error {
			return start(ctx, *msg)
		},
		Permanent: func(err error) bool {
			return common.IsValidation(err) || common.IsNotFound(err)
		},
		MarkInvalid: true,
	}
}
