package rpcapi

import "testing"

func TestBuildSchemaExposesAllFourMessages(t *testing.T) {
	sch, err := buildSchema()
	if err != nil {
		t.Fatalf("buildSchema: %v", err)
	}
	for name, desc := range map[string]any{
		"SubmitJobRequest":  sch.submitJobRequest,
		"SubmitJobResponse": sch.submitJobResponse,
		"AwaitJobRequest":   sch.awaitJobRequest,
		"AwaitJobResponse":  sch.awaitJobResponse,
	} {
		if desc == nil {
			t.Fatalf("schema missing message %s", name)
		}
	}
}

func TestValidateAstNodeNamesAcceptsKnownTags(t *testing.T) {
	payload := []byte(`{"astNodeName":"ADD","left":{"astNodeName":"NUMBERLITERAL","value":1},"right":{"astNodeName":"NUMBERLITERAL","value":2}}`)
	if err := validateAstNodeNames(payload); err != nil {
		t.Fatalf("validateAstNodeNames: %v", err)
	}
}

func TestValidateAstNodeNamesRejectsUnknownTag(t *testing.T) {
	payload := []byte(`{"astNodeName":"NotARealTag"}`)
	if err := validateAstNodeNames(payload); err == nil {
		t.Fatal("expected an error for an unrecognized astNodeName")
	}
}

func TestDynamicMessageRoundTripsStringFields(t *testing.T) {
	sch, err := buildSchema()
	if err != nil {
		t.Fatalf("buildSchema: %v", err)
	}
	req := newDynamic(sch.submitJobRequest)
	setStr(req, "payload_json", `{"astNodeName":"NUMBERLITERAL","value":1}`)
	if got := getStr(req, "payload_json"); got != `{"astNodeName":"NUMBERLITERAL","value":1}` {
		t.Fatalf("round trip mismatch: %s", got)
	}
}
