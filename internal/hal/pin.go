// SPDX-License-Identifier: MIT
package hal

import "sync/atomic"

// VirtualPin is a host Heartbeat. It starts low and counts its toggles so a
// frontend can show that the loop is alive.
type VirtualPin struct {
	toggles atomic.Uint64
}

func (p *VirtualPin) Toggle() { p.toggles.Add(1) }

func (p *VirtualPin) Toggles() uint64 { return p.toggles.Load() }

// High reports the current pin level.
func (p *VirtualPin) High() bool { return p.toggles.Load()%2 == 1 }
