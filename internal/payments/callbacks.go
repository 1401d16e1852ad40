package payments

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// correlationKeys names the parameter each provider uses to echo the attempt id.
var correlationKeys = map[Method]string{
	MethodEsewa:          "transaction_uuid",
	MethodKhalti:         "pidx",
	MethodBankTransfer:   "reference",
	MethodCashOnDelivery: "reference",
}

// NormalizeCallback turns a provider's raw callback into flat string params.
// eSewa sends a base64 JSON blob under "data"; its fields are merged over the
// query params. Other providers already send flat params.
func NormalizeCallback(method Method, raw map[string]string) (map[string]string, error) {
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		out[k] = strings.TrimSpace(v)
	}

	if method != MethodEsewa || out["data"] == "" {
		return out, nil
	}

	fields, err := DecodeEsewaData(out["data"])
	if err != nil {
		return nil, err
	}
	delete(out, "data")
	for k, v := range fields {
		out[k] = v
	}
	return out, nil
}

// DecodeEsewaData decodes eSewa's base64 JSON blob into string fields. Numbers
// keep the text eSewa sent.
func DecodeEsewaData(data string) (map[string]string, error) {
	// eSewa appends the blob to the success url unescaped, so '+' may arrive as ' '.
	data = strings.ReplaceAll(strings.TrimSpace(data), " ", "+")

	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		decoded, err = base64.URLEncoding.DecodeString(data)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: esewa data is not base64: %w", ErrValidation, err)
	}

	dec := json.NewDecoder(bytes.NewReader(decoded))
	dec.UseNumber()
	var blob map[string]any
	if err := dec.Decode(&blob); err != nil {
		return nil, fmt.Errorf("%w: esewa data is not json: %w", ErrValidation, err)
	}

	out := make(map[string]string, len(blob))
	for k, v := range blob {
		switch t := v.(type) {
		case nil:
		case string:
			out[k] = t
		case json.Number:
			out[k] = t.String()
		default:
			out[k] = fmt.Sprint(t)
		}
	}
	return out, nil
}

// CorrelationID extracts the attempt id for method from normalized params.
func CorrelationID(method Method, params map[string]string) (string, error) {
	key, ok := correlationKeys[method]
	if !ok {
		return "", fmt.Errorf("%w: no callback shape for %s", ErrConfiguration, method)
	}
	id := strings.TrimSpace(params[key])
	if id == "" {
		return "", fmt.Errorf("%w: %s callback without %s", ErrValidation, method, key)
	}
	return id, nil
}
