package floodlight

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// REST endpoints, relative to the controller URL.
const (
	healthPath   = "/wm/core/health/json"
	switchesPath = "/wm/core/controller/switches/json"
	linksPath    = "/wm/topology/links/json"
	devicesPath  = "/wm/device/"
)

// ControllerID is the raw id of the controller node in every snapshot.
const ControllerID = "Floodlight Controller"

// health is the /wm/core/health/json response.
type health struct {
	Healthy bool `json:"healthy"`
}

// switchInfo is one entry of /wm/core/controller/switches/json.
type switchInfo struct {
	InetAddress     string `json:"inetAddress"`
	ConnectedSince  int64  `json:"connectedSince"`
	OpenFlowVersion string `json:"openFlowVersion"`
	SwitchDPID      string `json:"switchDPID" validate:"required_without=DPID"`
	DPID            string `json:"dpid"`
}

// ID returns the switch datapath id, preferring switchDPID.
func (s switchInfo) ID() string {
	if s.SwitchDPID != "" {
		return s.SwitchDPID
	}
	return s.DPID
}

// linkInfo is one entry of /wm/topology/links/json.
type linkInfo struct {
	SrcSwitch string `json:"src-switch" validate:"required"`
	SrcPort   int    `json:"src-port"`
	DstSwitch string `json:"dst-switch" validate:"required"`
	DstPort   int    `json:"dst-port"`
	Type      string `json:"type"`
	Direction string `json:"direction"`
	Latency   int    `json:"latency" validate:"gte=0"`
}

type attachmentPoint struct {
	Switch string `json:"switch" validate:"required"`
	Port   string `json:"port"`
}

// device is one host learned by the controller.
type device struct {
	EntityClass     string            `json:"entityClass"`
	MAC             []string          `json:"mac" validate:"dive,mac"`
	IPv4            []string          `json:"ipv4" validate:"dive,ipv4"`
	IPv6            []string          `json:"ipv6" validate:"dive,ipv6"`
	VLAN            []string          `json:"vlan"`
	AttachmentPoint []attachmentPoint `json:"attachmentPoint" validate:"dive"`
	LastSeen        int64             `json:"lastSeen"`
}

// devices is the /wm/device/ response.
type devices struct {
	Devices []device `json:"devices" validate:"dive"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func validateSwitches(list []switchInfo) error {
	for i := range list {
		if err := validate.Struct(&list[i]); err != nil {
			return fmt.Errorf("invalid switch data from Floodlight: switch %d: %w", i, err)
		}
	}
	return nil
}

func validateLinks(list []linkInfo) error {
	for i := range list {
		if err := validate.Struct(&list[i]); err != nil {
			return fmt.Errorf("invalid link data from Floodlight: link %d: %w", i, err)
		}
	}
	return nil
}

func validateDevices(d *devices) error {
	if err := validate.Struct(d); err != nil {
		return fmt.Errorf("invalid device data from Floodlight: %w", err)
	}
	return nil
}
