package proto

import (
	"encoding/json"

	"github.com/sdeoras/cropguard/advisor"
	"github.com/sdeoras/cropguard/recommend"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// toStruct goes through the JSON form of v so field names match its json tags.
func toStruct(v interface{}) (*structpb.Struct, error) {
	jb, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := protojson.Unmarshal(jb, out); err != nil {
		return nil, err
	}
	return out, nil
}

func fromStruct(s *structpb.Struct, v interface{}) error {
	jb, err := protojson.Marshal(s)
	if err != nil {
		return err
	}
	return json.Unmarshal(jb, v)
}

// FromRecommendation encodes rec for the wire.
func FromRecommendation(rec recommend.Recommendation) (*structpb.Struct, error) {
	return toStruct(rec)
}

// FromProtocol encodes p for the wire.
func FromProtocol(p advisor.Protocol) (*structpb.Struct, error) {
	return toStruct(p)
}

// Recommendation is the decoded form of a Classify response.
type Recommendation struct {
	RequestID      string `json:"requestId"`
	Classification struct {
		Label      string  `json:"label"`
		Index      int     `json:"index"`
		Confidence float32 `json:"confidence"`
	} `json:"classification"`
	Performance struct {
		ObservedLatencyMs  int64   `json:"observedLatencyMs"`
		EstimatedLatencyMs int64   `json:"estimatedLatencyMs"`
		SpeedupRatio       float64 `json:"speedupRatio"`
	} `json:"performance"`
	Protocol Protocol `json:"protocol"`
	Ranked   []struct {
		Label      string  `json:"label"`
		Confidence float32 `json:"confidence"`
	} `json:"ranked"`
}

// Protocol is the decoded form of an Advise response.
type Protocol struct {
	Status    string   `json:"status"`
	Headline  string   `json:"headline"`
	Steps     []string `json:"steps"`
	Authority string   `json:"authority"`
}

// ToRecommendation decodes a Classify response.
func ToRecommendation(s *structpb.Struct) (*Recommendation, error) {
	out := new(Recommendation)
	if err := fromStruct(s, out); err != nil {
		return nil, err
	}
	return out, nil
}

// ToProtocol decodes an Advise response.
func ToProtocol(s *structpb.Struct) (*Protocol, error) {
	out := new(Protocol)
	if err := fromStruct(s, out); err != nil {
		return nil, err
	}
	return out, nil
}
