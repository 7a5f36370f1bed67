package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/airtrap/server/internal/client"
	gonet "github.com/airtrap/server/internal/net"
	"github.com/airtrap/server/internal/world"
	"go.uber.org/zap"
)

// airtrapbot is a headless load-test client: it registers, hosts a room,
// readies up, and mashes random inputs at tick rate. Useful for soaking a
// server without the graphical client.

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	tcpAddr := flag.String("tcp", "127.0.0.1:4242", "server TCP address")
	udpAddr := flag.String("udp", "127.0.0.1:4243", "server UDP address")
	name := flag.String("name", fmt.Sprintf("bot%d", rand.Intn(100000)), "bot username")
	join := flag.Uint("join", 0, "room ID to join instead of hosting")
	flag.Parse()

	log, err := zap.NewDevelopment()
	if err != nil {
		return err
	}
	defer log.Sync()

	netClient, err := gonet.Dial(*tcpAddr, *udpAddr, 256, log)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer netClient.Close()

	sync := client.NewSync(netClient, log)

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	const tick = time.Second / 60
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	registered := false
	hosted := false
	readied := false
	var lastState client.State = -1

	for {
		select {
		case <-ticker.C:
			sync.Update(tick)

			if sync.ConsumeKicked() {
				log.Warn("被踢出房間，結束")
				return nil
			}

			// One action per state entry; InGame acts every tick.
			if state := sync.State(); state != lastState {
				lastState = state
				log.Info("狀態變更", zap.Int("state", int(state)), zap.Uint64("ping_ms", sync.PingMs()))

				switch state {
				case client.StateAuth:
					if !registered {
						registered = true
						sync.TryRegister(*name, "botpw")
					}
				case client.StateInLobby:
					if !hosted {
						hosted = true
						if *join != 0 {
							sync.TryJoinRoom(uint32(*join), false)
						} else {
							sync.TryCreateRoom(*name+"-room", 4, 1.0, 1.0, 1, rand.Uint32(), 120)
						}
					}
				case client.StateInRoom:
					if !readied {
						readied = true
						sync.TrySetReady(true)
					}
				}
			}
			if sync.State() == client.StateInGame {
				sync.SendInput(randomMask())
			}
		case <-shutdownCh:
			log.Info("離線")
			sync.TryLeaveRoom()
			return nil
		}
	}
}

// randomMask fires two ticks in three; up, down, left, right and standing
// still are equally likely.
func randomMask() byte {
	var mask byte
	if rand.Intn(3) != 0 {
		mask |= world.InputFire
	}
	switch rand.Intn(5) {
	case 0:
		mask |= world.InputUp
	case 1:
		mask |= world.InputDown
	case 2:
		mask |= world.InputLeft
	case 3:
		mask |= world.InputRight
	}
	return mask
}
