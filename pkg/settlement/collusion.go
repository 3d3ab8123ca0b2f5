// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package settlement

import (
	"fmt"
	"strings"

	"github.com/AccelByte/extend-duel-orchestrator/pkg/battle"
	"github.com/AccelByte/extend-duel-orchestrator/pkg/service"
)

const alertColor = 0xFF0000

// buildCollusionAlert renders suspicious log entries into an operator alert.
// At most maxEntries entries are listed; the remainder is summarized as an
// omitted count so one noisy pair cannot flood the alert channel.
func buildCollusionAlert(actor, other *battle.Participant, entries []service.ActionLogEntry, maxEntries int) service.Alert {
	var b strings.Builder
	fmt.Fprintf(&b, "Possible duel collusion: %s (%s) against %s (%s).\n", actor.Name, actor.ID, other.Name, other.ID)
	fmt.Fprintf(&b, "%d suspicious action-log entries in the lookback window:\n", len(entries))

	listed := entries
	if len(listed) > maxEntries {
		listed = listed[:maxEntries]
	}
	for _, entry := range listed {
		fmt.Fprintf(&b, "- %s: %s\n", entry.Time.Format("2006-01-02 15:04:05"), entry.Args)
	}
	if omitted := len(entries) - len(listed); omitted > 0 {
		fmt.Fprintf(&b, "(+%d more omitted)\n", omitted)
	}

	return service.Alert{
		Title:       "Duel collusion suspected",
		Description: b.String(),
		Color:       alertColor,
	}
}
