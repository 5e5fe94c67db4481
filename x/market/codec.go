package market

import (
	amino "github.com/tendermint/go-amino"
)

// cdc serializes all models and messages of this package.
var cdc = amino.NewCodec()

func (m CreateMarketMsg) Marshal() ([]byte, error)    { return cdc.MarshalBinaryBare(m) }
func (m *CreateMarketMsg) Unmarshal(raw []byte) error { return cdc.UnmarshalBinaryBare(raw, m) }

func (m UpdateMarketMsg) Marshal() ([]byte, error)    { return cdc.MarshalBinaryBare(m) }
func (m *UpdateMarketMsg) Unmarshal(raw []byte) error { return cdc.UnmarshalBinaryBare(raw, m) }

func (m FlowCreatedMsg) Marshal() ([]byte, error)    { return cdc.MarshalBinaryBare(m) }
func (m *FlowCreatedMsg) Unmarshal(raw []byte) error { return cdc.UnmarshalBinaryBare(raw, m) }

func (m FlowUpdatedMsg) Marshal() ([]byte, error)    { return cdc.MarshalBinaryBare(m) }
func (m *FlowUpdatedMsg) Unmarshal(raw []byte) error { return cdc.UnmarshalBinaryBare(raw, m) }

func (m FlowDeletedMsg) Marshal() ([]byte, error)    { return cdc.MarshalBinaryBare(m) }
func (m *FlowDeletedMsg) Unmarshal(raw []byte) error { return cdc.UnmarshalBinaryBare(raw, m) }

func (m CloseStreamMsg) Marshal() ([]byte, error)    { return cdc.MarshalBinaryBare(m) }
func (m *CloseStreamMsg) Unmarshal(raw []byte) error { return cdc.UnmarshalBinaryBare(raw, m) }

func (m EmergencyCloseStreamMsg) Marshal() ([]byte, error) { return cdc.MarshalBinaryBare(m) }
func (m *EmergencyCloseStreamMsg) Unmarshal(raw []byte) error {
	return cdc.UnmarshalBinaryBare(raw, m)
}

func (m JailMarketMsg) Marshal() ([]byte, error)    { return cdc.MarshalBinaryBare(m) }
func (m *JailMarketMsg) Unmarshal(raw []byte) error { return cdc.UnmarshalBinaryBare(raw, m) }

func (m DistributeMsg) Marshal() ([]byte, error)    { return cdc.MarshalBinaryBare(m) }
func (m *DistributeMsg) Unmarshal(raw []byte) error { return cdc.UnmarshalBinaryBare(raw, m) }

func (m UpdatePriceMsg) Marshal() ([]byte, error)    { return cdc.MarshalBinaryBare(m) }
func (m *UpdatePriceMsg) Unmarshal(raw []byte) error { return cdc.UnmarshalBinaryBare(raw, m) }

func (m EmergencyDrainMsg) Marshal() ([]byte, error)    { return cdc.MarshalBinaryBare(m) }
func (m *EmergencyDrainMsg) Unmarshal(raw []byte) error { return cdc.UnmarshalBinaryBare(raw, m) }

// DistributionReceipt is emitted as the result data of a successful
// distribution.
func (r DistributionReceipt) Marshal() ([]byte, error) { return cdc.MarshalBinaryBare(r) }
func (r *DistributionReceipt) Unmarshal(raw []byte) error {
	return cdc.UnmarshalBinaryBare(raw, r)
}
