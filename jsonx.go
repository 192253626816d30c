package main

import "github.com/bytedance/sonic"

// fastJSONMarshal encodes v as JSON using the Sonic encoder, which is
// cheaper than encoding/json for the record snapshots written after
// every session close.
func fastJSONMarshal(v interface{}) ([]byte, error) {
	return sonic.Marshal(v)
}

// fastJSONMarshalIndent is used for the on-disk record file so operators
// can read and hand-edit it.
func fastJSONMarshalIndent(v interface{}) ([]byte, error) {
	return sonic.MarshalIndent(v, "", "  ")
}

// fastJSONUnmarshal decodes JSON data into v using Sonic. It is a
// drop-in replacement for encoding/json.Unmarshal for typical Go structs.
func fastJSONUnmarshal(data []byte, v interface{}) error {
	return sonic.Unmarshal(data, v)
}
