package models

import (
	"encoding/json"
	"strings"
)

// InjuryStatus is the normalized injury status for a player.
// Normalization happens at the ingestion boundary; the prediction engine
// only ever sees this enum.
type InjuryStatus string

const (
	InjuryOut          InjuryStatus = "OUT"
	InjuryDoubtful     InjuryStatus = "DOUBTFUL"
	InjuryQuestionable InjuryStatus = "QUESTIONABLE"
	InjuryDayToDay     InjuryStatus = "DAY_TO_DAY"
	InjuryUnknown      InjuryStatus = "UNKNOWN"
)

// ParseInjuryStatus normalizes a free-text status into an InjuryStatus.
// Substring matching is intentionally loose: provider payloads mix "Out",
// "Ruled Out", "Game Time Decision - Questionable" and similar variants.
func ParseInjuryStatus(raw string) InjuryStatus {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case s == "":
		return InjuryUnknown
	case strings.Contains(s, "doubtful"):
		return InjuryDoubtful
	case strings.Contains(s, "questionable"):
		return InjuryQuestionable
	case strings.Contains(s, "day-to-day"), strings.Contains(s, "day to day"):
		return InjuryDayToDay
	case strings.Contains(s, "out"):
		return InjuryOut
	default:
		return InjuryUnknown
	}
}

// rawInjuryStatus accepts the heterogeneous status representations the
// provider emits: a plain string, or a nested object carrying a type
// description. Anything else coerces to unknown.
type rawInjuryStatus struct {
	value string
}

func (r *rawInjuryStatus) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		r.value = s
		return nil
	}

	var obj struct {
		Type struct {
			Description string `json:"description"`
			Name        string `json:"name"`
		} `json:"type"`
		Description string `json:"description"`
	}
	if err := json.Unmarshal(data, &obj); err == nil {
		switch {
		case obj.Type.Description != "":
			r.value = obj.Type.Description
		case obj.Type.Name != "":
			r.value = obj.Type.Name
		default:
			r.value = obj.Description
		}
		return nil
	}

	r.value = ""
	return nil
}

// InjuryRecord is a single player's injury entry
type InjuryRecord struct {
	Player   string       `json:"player"`
	Position string       `json:"position"`
	Status   InjuryStatus `json:"status"`
	Detail   string       `json:"detail"`
}

// InjuryRecordInput is the provider-side injury entry with the raw status
type InjuryRecordInput struct {
	Player   string          `json:"athlete"`
	Position string          `json:"position"`
	Status   rawInjuryStatus `json:"status"`
	Detail   string          `json:"details"`
}

// ToRecord converts a provider injury entry to the normalized record
func (i *InjuryRecordInput) ToRecord() InjuryRecord {
	return InjuryRecord{
		Player:   i.Player,
		Position: i.Position,
		Status:   ParseInjuryStatus(i.Status.value),
		Detail:   i.Detail,
	}
}

// TeamInjuries is a team's normalized injury report
type TeamInjuries struct {
	Team     string         `json:"team"`
	Injuries []InjuryRecord `json:"injuries"`
}
