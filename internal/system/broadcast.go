package system

import (
	"github.com/airtrap/server/internal/handler"
	gonet "github.com/airtrap/server/internal/net"
	"github.com/airtrap/server/internal/net/packet"
	"github.com/airtrap/server/internal/world"
)

// sendToRoom fans an already-built packet out to every member on the
// reliable channel.
func sendToRoom(d *handler.Deps, r *world.Room, p *packet.Packet) {
	for _, sid := range r.Members() {
		d.Net.Send(sid, p, gonet.ChannelStream)
	}
}

// broadcastSpawn announces a new network-visible entity to the whole room.
func broadcastSpawn(d *handler.Deps, r *world.Room, payload packet.EntitySpawnPayload) {
	p := packet.New(packet.OpEntitySpawn)
	if err := payload.EncodeTo(p); err != nil {
		return
	}
	sendToRoom(d, r, p)
}

// broadcastDeath announces an entity's removal to the whole room.
func broadcastDeath(d *handler.Deps, r *world.Room, payload packet.EntityDeathPayload) {
	p := packet.New(packet.OpEntityDeath)
	if err := payload.EncodeTo(p); err != nil {
		return
	}
	sendToRoom(d, r, p)
}

// sendAmmo pushes the player's current weapon state to its owner.
func sendAmmo(d *handler.Deps, pl *world.Player) {
	w := pl.Weapon
	reloading := byte(0)
	if w.Reloading {
		reloading = 1
	}
	p := packet.New(packet.OpAmmoUpdate)
	if err := (&packet.AmmoUpdatePayload{
		Current:           w.Magazine,
		Max:               w.MagSize,
		IsReloading:       reloading,
		CooldownRemaining: w.Cooldown,
	}).EncodeTo(p); err != nil {
		return
	}
	d.Net.Send(pl.SessionID, p, gonet.ChannelStream)
}
