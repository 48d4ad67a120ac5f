// Package casbin provides Casbin-based authorization support.
// It implements policy-based access control using the Casbin library.
package casbin

// Policy 对应 casbin_rule 表的一行。
// V0/V1/V2 通常是 subject/object/action,后面的列按模型可选。
type Policy struct {
	PType string `json:"ptype"`
	V0    string `json:"v0"`
	V1    string `json:"v1"`
	V2    string `json:"v2"`
	V3    string `json:"v3"`
	V4    string `json:"v4"`
	V5    string `json:"v5"`
}
