package cli

import (
	"encoding/json"
	"fmt"

	"github.com/ownyourdata/semcon/internal/common"
)

// withSchema injects schema into the body's meta.schema field. Only JSON
// objects can carry metadata.
func withSchema(body []byte, schema string) ([]byte, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return nil, fmt.Errorf("%w: --schema needs a JSON object body", common.ErrInvalidInput)
	}

	meta := map[string]json.RawMessage{}
	if raw, ok := obj["meta"]; ok {
		if err := json.Unmarshal(raw, &meta); err != nil {
			return nil, fmt.Errorf("%w: meta is not an object", common.ErrInvalidInput)
		}
	}

	encoded, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}
	meta["schema"] = encoded

	obj["meta"], err = json.Marshal(meta)
	if err != nil {
		return nil, err
	}
	return json.Marshal(obj)
}
