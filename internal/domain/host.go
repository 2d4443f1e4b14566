package domain

// MoneyCategory tags a balance change for statistics and UI only.
type MoneyCategory string

const (
	MoneyUsedVehicleFee      MoneyCategory = "usedVehicleFee"
	MoneyUsedVehiclePurchase MoneyCategory = "usedVehiclePurchase"
	MoneyRefund              MoneyCategory = "refund"
	MoneyFinancePayment      MoneyCategory = "financePayment"
	MoneyLeasePayment        MoneyCategory = "leasePayment"
	MoneyDownPayment         MoneyCategory = "downPayment"
	MoneySecurityDeposit     MoneyCategory = "securityDeposit"
	MoneyLoanReceived        MoneyCategory = "loanReceived"
	MoneyPayoff              MoneyCategory = "payoff"
	MoneyTerminationFee      MoneyCategory = "terminationFee"
	MoneyTradeIn             MoneyCategory = "tradeIn"
)

// ConfigurationSet is one configurable option group of a store item
// (wheels, front loader, design colour ...).
type ConfigurationSet struct {
	Name    string   `yaml:"name" json:"name"`
	Options []string `yaml:"options" json:"options"`
}

// StoreItem is a purchasable catalog definition.
type StoreItem struct {
	Key            string             `yaml:"key" json:"key"`
	Name           string             `yaml:"name" json:"name"`
	Brand          string             `yaml:"brand" json:"brand"`
	Category       string             `yaml:"category" json:"category"`
	Price          float64            `yaml:"price" json:"price"`
	Configurations []ConfigurationSet `yaml:"configurations" json:"configurations"`
}

func (i *StoreItem) Ref() ItemRef {
	return ItemRef{StoreKey: i.Key, Name: i.Name, Brand: i.Brand, BasePrice: i.Price}
}

// ConditionTarget adapts a spawned vehicle instance. A nil handler means the
// instance does not support that property and it is skipped.
type ConditionTarget struct {
	InstanceID       string
	SetDamage        func(amount float64)
	SetWear          func(amount float64)
	SetOperatingTime func(ms float64)
	SetAge           func(months int)
	SetDirt          func(amount float64)
	SetReliability   func(r Reliability)
}

type NoticeKind string

const (
	NoticeInfo    NoticeKind = "info"
	NoticeSuccess NoticeKind = "success"
	NoticeWarning NoticeKind = "warning"
)

// Notice is a fire-and-forget message for one farm.
type Notice struct {
	FarmID int        `json:"farm_id"`
	Kind   NoticeKind `json:"kind"`
	Text   string     `json:"text"`
}

type DialogKind string

const (
	DialogListingFound  DialogKind = "listing_found"
	DialogSearchExpired DialogKind = "search_expired"
)

// Dialog asks the player something. The answer comes back later as a command;
// the core never waits for it.
type Dialog struct {
	FarmID    int        `json:"farm_id"`
	Kind      DialogKind `json:"kind"`
	Title     string     `json:"title"`
	Text      string     `json:"text"`
	SearchID  int64      `json:"search_id,omitempty"`
	ListingID int64      `json:"listing_id,omitempty"`
	Options   []string   `json:"options,omitempty"`
}

// Actor is whoever sent a request. Privileged actors may change settings.
type Actor struct {
	FarmID     int    `json:"farm_id"`
	PlayerID   string `json:"player_id"`
	Privileged bool   `json:"privileged"`
}
