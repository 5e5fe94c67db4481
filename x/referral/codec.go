package referral

import (
	amino "github.com/tendermint/go-amino"
)

// cdc serializes all models and messages of this package.
var cdc = amino.NewCodec()

func (m ApplyMsg) Marshal() ([]byte, error)           { return cdc.MarshalBinaryBare(m) }
func (m *ApplyMsg) Unmarshal(raw []byte) error        { return cdc.UnmarshalBinaryBare(raw, m) }
func (m VerifyMsg) Marshal() ([]byte, error)          { return cdc.MarshalBinaryBare(m) }
func (m *VerifyMsg) Unmarshal(raw []byte) error       { return cdc.UnmarshalBinaryBare(raw, m) }
func (m DisableMsg) Marshal() ([]byte, error)         { return cdc.MarshalBinaryBare(m) }
func (m *DisableMsg) Unmarshal(raw []byte) error      { return cdc.UnmarshalBinaryBare(raw, m) }
func (m ChangeAddressMsg) Marshal() ([]byte, error)   { return cdc.MarshalBinaryBare(m) }
func (m *ChangeAddressMsg) Unmarshal(raw []byte) error { return cdc.UnmarshalBinaryBare(raw, m) }
func (m WithdrawMsg) Marshal() ([]byte, error)        { return cdc.MarshalBinaryBare(m) }
func (m *WithdrawMsg) Unmarshal(raw []byte) error     { return cdc.UnmarshalBinaryBare(raw, m) }
