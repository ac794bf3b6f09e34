package container

import (
	"fmt"

	"github.com/docker/go-connections/nat"
)

// Container-side ports exposed by the Chrome+noVNC image.
const (
	VNCPort   = "5900/tcp"
	CDPPort   = "9333/tcp"
	NoVNCPort = "6080/tcp"
)

// SessionLabel marks containers owned by the orchestrator. The value is
// the session ID.
const SessionLabel = "browsergrid.session"

// Endpoints holds the ephemeral host ports assigned to a container.
type Endpoints struct {
	VNC   string `json:"vnc_port"`
	CDP   string `json:"cdp_port"`
	NoVNC string `json:"novnc_port"`
}

// exposedPorts returns the port set the image must expose.
func exposedPorts() nat.PortSet {
	return nat.PortSet{
		nat.Port(VNCPort):   struct{}{},
		nat.Port(CDPPort):   struct{}{},
		nat.Port(NoVNCPort): struct{}{},
	}
}

// ephemeralBindings asks Docker to pick a free host port for every
// exposed container port.
func ephemeralBindings() nat.PortMap {
	bindings := nat.PortMap{}
	for port := range exposedPorts() {
		bindings[port] = []nat.PortBinding{{HostIP: "0.0.0.0", HostPort: ""}}
	}
	return bindings
}

// ExtractEndpoints reads the assigned host ports out of an inspected
// port map. All three mappings must be present.
func ExtractEndpoints(ports nat.PortMap) (Endpoints, error) {
	var eps Endpoints

	pick := func(port string) (string, error) {
		bindings, ok := ports[nat.Port(port)]
		if !ok || len(bindings) == 0 || bindings[0].HostPort == "" {
			return "", fmt.Errorf("no host binding for %s", port)
		}
		return bindings[0].HostPort, nil
	}

	var err error
	if eps.VNC, err = pick(VNCPort); err != nil {
		return Endpoints{}, err
	}
	if eps.CDP, err = pick(CDPPort); err != nil {
		return Endpoints{}, err
	}
	if eps.NoVNC, err = pick(NoVNCPort); err != nil {
		return Endpoints{}, err
	}

	return eps, nil
}
