package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/artur-silva-empresa/Texdex/internal/application"
	"github.com/artur-silva-empresa/Texdex/internal/domain"
	"github.com/artur-silva-empresa/Texdex/internal/realtime"
)

// SnapshotBroadcaster pushes every new ledger snapshot to stream clients
func SnapshotBroadcaster(hub *realtime.Hub, clock func() time.Time) domain.SnapshotHandler {
	return func(orders []*domain.Order) {
		if hub.ClientCount() == 0 {
			return
		}
		hub.Broadcast(realtime.Message{
			Event: realtime.EventSnapshot,
			Data:  application.ToOrderDTOs(orders, clock()),
		})
	}
}

func streamHandler(hub *realtime.Hub, sync *application.LedgerSync, queries *application.OrderQueryService) gin.HandlerFunc {
	return func(c *gin.Context) {
		client := hub.Register(principalName(c))
		defer hub.Unregister(client)

		initial := realtime.Message{
			Event: realtime.EventSnapshot,
			Data:  application.ToOrderDTOs(sync.Snapshot(), queries.Now()),
		}
		hub.Serve(c.Writer, c.Request, client, &initial)
	}
}
