package named

type AccountID uint64

type Tier uint8
