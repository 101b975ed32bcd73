package goal

import (
	"context"
	"log"
	"time"
)

// StartScheduler refreshes the goals of the current period every interval
// until ctx is done. interval <= 0 disables it.
func StartScheduler(ctx context.Context, tracker *Tracker, interval time.Duration) {
	if interval <= 0 {
		log.Println("Hedef yenileme zamanlayıcısı kapalı")
		return
	}

	go func() {
		log.Printf("Hedef yenileme zamanlayıcısı başladı (her %s)", interval)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Println("Hedef yenileme zamanlayıcısı durdu")
				return
			case now := <-ticker.C:
				n, err := tracker.RefreshAll(ctx, now)
				if err != nil {
					log.Printf("Hedef yenileme hatası: %v", err)
				}
				log.Printf("%d hedef yenilendi", n)
			}
		}
	}()
}
