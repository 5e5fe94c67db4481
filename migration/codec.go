package migration

import (
	amino "github.com/tendermint/go-amino"
)

// cdc serializes all models and messages of this package.
var cdc = amino.NewCodec()

func (m UpgradeSchemaMsg) Marshal() ([]byte, error)    { return cdc.MarshalBinaryBare(m) }
func (m *UpgradeSchemaMsg) Unmarshal(raw []byte) error { return cdc.UnmarshalBinaryBare(raw, m) }
