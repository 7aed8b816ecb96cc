package storage

import (
	"encoding/json"
	"errors"

	"bipedevo/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

func EncodeRunState(state model.RunState) ([]byte, error) {
	return json.Marshal(state)
}

func DecodeRunState(data []byte) (model.RunState, error) {
	var state model.RunState
	if err := json.Unmarshal(data, &state); err != nil {
		return model.RunState{}, err
	}
	if err := checkVersion(state.VersionedRecord); err != nil {
		return model.RunState{}, err
	}
	return state, nil
}

func EncodeRunSummary(summary model.RunSummary) ([]byte, error) {
	return json.Marshal(summary)
}

func DecodeRunSummary(data []byte) (model.RunSummary, error) {
	var summary model.RunSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return model.RunSummary{}, err
	}
	if err := checkVersion(summary.VersionedRecord); err != nil {
		return model.RunSummary{}, err
	}
	return summary, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}
