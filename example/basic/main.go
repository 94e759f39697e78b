/*
 * @Author: Marlon.M
 * @Email: maiguangyang@163.com
 * @Date: 2026-03-02
 *
 * Example: Two-Window Voice Session
 *
 * 这个示例在一个进程内模拟双窗口：主窗口持有真实媒体会话，
 * 悬浮窗通过总线转发命令并镜像快照。
 *
 * 构建命令: go build -o voice_example example/basic/main.go
 * 连接真实服务需要设置 LIVEKIT_URL / LIVEKIT_API_KEY / LIVEKIT_API_SECRET
 */
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/maiguangyang/voice_core/pkg/bus"
	"github.com/maiguangyang/voice_core/pkg/media"
	"github.com/maiguangyang/voice_core/pkg/session"
	"github.com/maiguangyang/voice_core/pkg/voice"
)

func main() {
	fmt.Println("=== Voice Core Basic Example ===")
	fmt.Println()

	// 1. 每个窗口在启动时确定一次角色
	fmt.Println("1. Resolving Roles...")
	mainResolver := &session.RoleResolver{}
	overlayResolver := &session.RoleResolver{}
	ownerRole := mainResolver.Resolve(session.SurfaceMain)
	followerRole := overlayResolver.Resolve(session.SurfaceOverlay)
	fmt.Printf("   Main window:    %s\n", ownerRole)
	fmt.Printf("   Overlay window: %s\n", followerRole)

	// 2. 同进程演示用内存总线；跨进程时换成 RelayAddr
	fmt.Println("\n2. Creating Bus Group...")
	group := bus.NewGroup()
	defer group.Close()

	ownerID := bus.NewInstanceID()
	followerID := bus.NewInstanceID()
	ownerBus := bus.Select(bus.Options{InstanceID: ownerID, Group: group})
	followerBus := bus.Select(bus.Options{InstanceID: followerID, Group: group})
	fmt.Printf("   ✓ Group size: %d\n", group.Size())

	// 3. Owner 侧：连接管理器 + 真实媒体会话
	fmt.Println("\n3. Creating Owner Store...")
	serverURL := os.Getenv("LIVEKIT_URL")
	prefs := session.NewMemoryPreferenceStore()

	mgr := voice.NewManager(voice.ManagerConfig{
		ServerURL:   serverURL,
		Identity:    "example-user",
		Credentials: media.NewAccessTokenProvider(os.Getenv("LIVEKIT_API_KEY"), os.Getenv("LIVEKIT_API_SECRET")),
		NewSession: func(events media.Events) media.Session {
			return media.NewLiveKitSession("example-user", nil, events)
		},
		Prefs: prefs,
	})

	owner := voice.NewStore(voice.StoreConfig{
		Role:       session.RoleOwner,
		InstanceID: ownerID,
		Bus:        ownerBus,
		Manager:    mgr,
		Prefs:      prefs,
	})
	voice.RegisterStore(owner)
	owner.Start()
	fmt.Println("   ✓ Owner store started")

	// 4. Follower 侧：只有转发与镜像，没有媒体会话
	fmt.Println("\n4. Creating Follower Store...")
	follower := voice.NewStore(voice.StoreConfig{
		Role:       session.RoleFollower,
		InstanceID: followerID,
		Bus:        followerBus,
		Prefs:      session.NewMemoryPreferenceStore(),
	})
	voice.RegisterStore(follower)
	follower.SetOnChange(func(snapshot session.Snapshot) {
		fmt.Printf("   → Follower sees: phase=%s muted=%v\n", snapshot.Phase, snapshot.IsMuted)
	})
	follower.Start()
	fmt.Println("   ✓ Follower store started")

	// 5. 等心跳到达，Follower 才认为 Owner 可用
	fmt.Println("\n5. Waiting for Heartbeat...")
	time.Sleep(200 * time.Millisecond)
	fmt.Printf("   Owner available: %v\n", follower.OwnerAvailable())

	// 6. 从悬浮窗发起操作
	fmt.Println("\n6. Relaying Commands from Follower...")
	if err := follower.ToggleMute(); err != nil {
		fmt.Printf("   Error: %v\n", err)
	} else {
		fmt.Println("   ✓ ToggleMute relayed")
	}

	if err := follower.SetAudioDevices(session.DevicePreferences{
		InputDeviceID:  "mic-usb",
		OutputDeviceID: "headphones",
	}); err != nil {
		fmt.Printf("   Error: %v\n", err)
	} else {
		fmt.Println("   ✓ SetAudioDevices relayed")
	}

	// 等快照节流窗口过去，让镜像追上
	time.Sleep(300 * time.Millisecond)

	// 7. 可选：连接真实频道
	if serverURL != "" {
		fmt.Println("\n7. Connecting to Channel...")
		follower.Connect(session.Channel{
			ID:   "example-channel",
			Name: "Example Voice",
			Kind: session.ChannelKindVoice,
		})
		time.Sleep(2 * time.Second)
		follower.Disconnect()
	} else {
		fmt.Println("\n7. LIVEKIT_URL not set, skipping real connection")
	}

	// 8. 状态总览
	fmt.Println("\n8. Status...")
	for _, s := range []*voice.Store{owner, follower} {
		status := s.GetStatus()
		statusJSON, _ := json.MarshalIndent(status, "   ", "  ")
		fmt.Printf("   %s:\n   %s\n", status.Role, string(statusJSON))
	}

	voice.CleanupAllStores()
	fmt.Println("\n=== Example Complete ===")
}
