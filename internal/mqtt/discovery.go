package mqtt

import (
	"encoding/json"
	"fmt"
	"strings"

	"lightstrip-controller/internal/config"
)

const (
	Manufacturer = "lightstrip-controller"
	Model        = "WS2812 strip"
	HWVersion    = "1.0.0"

	availableOnline  = "online"
	availableOffline = "offline"
)

// Topics are the MQTT topics of one strip.
type Topics struct {
	Base         string
	Set          string
	State        string
	Availability string
	Discovery    string
}

// NewTopics derives the topics of device id under the base topic.
func NewTopics(topic, id, discoveryPrefix string) Topics {
	id = SafeID(id)
	base := strings.Trim(topic, "/") + "/" + id
	return Topics{
		Base:         base,
		Set:          base + "/set",
		State:        base + "/state",
		Availability: base + "/availability",
		Discovery:    fmt.Sprintf("%s/light/%s/config", strings.Trim(discoveryPrefix, "/"), id),
	}
}

// SafeID keeps the characters Home Assistant accepts in an object id.
func SafeID(id string) string {
	id = strings.ReplaceAll(strings.TrimSpace(id), " ", "_")
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' || r == '-' {
			return r
		}
		return -1
	}, id)
}

// Availability tells Home Assistant where to look for online/offline state.
type Availability struct {
	Topic               string `json:"topic"`
	ValueTemplate       string `json:"value_template"`
	PayloadAvailable    string `json:"payload_available"`
	PayloadNotAvailable string `json:"payload_not_available"`
}

// Device groups the entity under one device in Home Assistant.
type Device struct {
	Identifiers  []string `json:"identifiers"`
	Manufacturer string   `json:"manufacturer"`
	Model        string   `json:"model"`
	Name         string   `json:"name"`
	SWVersion    string   `json:"sw_version"`
	HWVersion    string   `json:"hw_version"`
}

// Discovery is the config message of a JSON schema MQTT light.
type Discovery struct {
	Name         string       `json:"name"`
	UniqueID     string       `json:"unique_id"`
	ObjectID     string       `json:"object_id"`
	Icon         string       `json:"icon"`
	Schema       string       `json:"schema"`
	CommandTopic string       `json:"command_topic"`
	StateTopic   string       `json:"state_topic"`
	Brightness   bool         `json:"brightness"`
	RGB          bool         `json:"rgb"`
	ColorTemp    bool         `json:"color_temp"`
	Effect       bool         `json:"effect"`
	EffectList   []string     `json:"effect_list"`
	Optimistic   bool         `json:"optimistic"`
	Retain       bool         `json:"retain"`
	Availability Availability `json:"availability"`
	Device       Device       `json:"device"`
}

// NewDiscovery builds the discovery message for device.
func NewDiscovery(device config.DeviceConfig, topics Topics, effects []string, version string) Discovery {
	id := SafeID(device.ID)
	if effects == nil {
		effects = []string{}
	}
	return Discovery{
		Name:         device.Name,
		UniqueID:     id + "_light",
		ObjectID:     id,
		Icon:         "mdi:led-strip-variant",
		Schema:       "json",
		CommandTopic: topics.Set,
		StateTopic:   topics.State,
		Brightness:   true,
		RGB:          true,
		ColorTemp:    true,
		Effect:       true,
		EffectList:   effects,
		Retain:       true,
		Availability: Availability{
			Topic:               topics.Availability,
			ValueTemplate:       "{{ value_json.state }}",
			PayloadAvailable:    availableOnline,
			PayloadNotAvailable: availableOffline,
		},
		Device: Device{
			Identifiers:  []string{id},
			Manufacturer: Manufacturer,
			Model:        Model,
			Name:         device.Name,
			SWVersion:    version,
			HWVersion:    HWVersion,
		},
	}
}

// AvailabilityPayload is the message published on the availability topic.
func AvailabilityPayload(online bool) []byte {
	state := availableOffline
	if online {
		state = availableOnline
	}
	b, _ := json.Marshal(map[string]string{"state": state})
	return b
}
