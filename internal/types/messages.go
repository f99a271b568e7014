package types

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

const PocDelimiter = "--"

// PocRequest names a previously reported crash as <project>--<fuzzer>--<poc>.
type PocRequest struct {
	Project string
	Fuzzer  string
	Poc     string
}

func ParsePocRequest(id string) (PocRequest, error) {
	parts := strings.Split(id, PocDelimiter)
	if len(parts) != 3 {
		return PocRequest{}, fmt.Errorf("invalid poc identifier %q: want <project>--<fuzzer>--<poc>", id)
	}
	for _, part := range parts {
		if part == "" {
			return PocRequest{}, fmt.Errorf("invalid poc identifier %q: empty component", id)
		}
	}
	return PocRequest{Project: parts[0], Fuzzer: parts[1], Poc: parts[2]}, nil
}

// Name is the identifier the coordinator knows the poc by.
func (p PocRequest) Name() string {
	return strings.Join([]string{p.Project, p.Fuzzer, p.Poc}, PocDelimiter)
}

// CampaignReport is flattened into crash-0..crash-N keys on the wire.
type CampaignReport struct {
	BotID   BotIdentity
	Project string
	Fuzzer  string
	Crashes [][]byte
}

func (r CampaignReport) MarshalJSON() ([]byte, error) {
	body := map[string]any{
		"botid":       r.BotID.String(),
		"project":     r.Project,
		"fuzzer":      r.Fuzzer,
		"crash_count": len(r.Crashes),
	}
	for i, crash := range r.Crashes {
		body[fmt.Sprintf("crash-%d", i)] = EncodePayload(crash)
	}
	return json.Marshal(body)
}

func EncodePayload(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

func DecodePayload(encoded string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return data, nil
}
