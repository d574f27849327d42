package certificate

import (
	"context"
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"

	"eligicert/internal/notify"
)

// shareTargets are the platforms the share button pretends to support.
var shareTargets = []string{"WhatsApp", "Instagram", "Facebook", "X"}

// minTargetSimilarity is the Jaro-Winkler similarity above which a typed
// target is taken to mean a known platform.
const minTargetSimilarity = 0.85

// ShareAck acknowledges a share request. Nothing is sent anywhere.
type ShareAck struct {
	Requested string `json:"requested"`
	Target    string `json:"target"`
	Known     bool   `json:"known"`
	Message   string `json:"message"`
}

// Share acknowledges the requested target and notifies the user. Real
// platform sharing is not implemented.
func (r *Renderer) Share(ctx context.Context, target string) ShareAck {
	resolved, known := ResolveShareTarget(target)
	ack := ShareAck{
		Requested: target,
		Target:    resolved,
		Known:     known,
		Message:   "In a real app, this would open sharing options for " + resolved + "!",
	}
	r.notify(ctx, notify.Notification{
		Title:       "Share Feature",
		Description: ack.Message,
		Severity:    notify.SeverityDefault,
	})
	return ack
}

// ResolveShareTarget maps loosely typed input ("whatsap", "insta") onto a
// known platform name. Unknown input is returned trimmed with known=false;
// empty input means every platform.
func ResolveShareTarget(target string) (string, bool) {
	t := strings.TrimSpace(target)
	if t == "" {
		return "WhatsApp and Instagram", false
	}

	metric := metrics.NewJaroWinkler()
	best, bestScore := "", 0.0
	for _, name := range shareTargets {
		if strings.EqualFold(name, t) {
			return name, true
		}
		if len(t) >= 3 && strings.HasPrefix(strings.ToLower(name), strings.ToLower(t)) {
			return name, true
		}
		if score := strutil.Similarity(strings.ToLower(t), strings.ToLower(name), metric); score > bestScore {
			best, bestScore = name, score
		}
	}
	if bestScore >= minTargetSimilarity {
		return best, true
	}
	return t, false
}
