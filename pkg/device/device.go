package device

import (
	"fmt"

	"github.com/google/uuid"
)

// namespace for the UniqueID of configured instruments.
var uidNamespace = uuid.MustParse("8b0c7c64-1f55-4e59-9f0e-3a1b6f2f6c1d")

type Info struct {
	Name     string `json:"DeviceName"`
	Vendor   string `json:"Vendor"`
	Model    string `json:"Model"`
	Address  string `json:"Address"`
	UniqueID string `json:"UniqueID"`
}

// NewInfo fills in the UniqueID. The same vendor, model and address always
// map to the same ID.
func NewInfo(name, vendor, model, address string) Info {
	key := fmt.Sprintf("%s/%s/%s", vendor, model, address)
	return Info{
		Name:     name,
		Vendor:   vendor,
		Model:    model,
		Address:  address,
		UniqueID: uuid.NewSHA1(uidNamespace, []byte(key)).String(),
	}
}

// Device is implemented by every driver.
type Device interface {
	Info() Info

	Initialize() error
	Close() error
	Connected() bool

	IDN() (string, error)
}

// Instrument is a message based device: it accepts command strings and
// answers queries with text.
type Instrument interface {
	Device

	Write(cmd string) error
	Query(cmd string) (string, error)
}
