package goroutine

import (
	"context"
	"runtime/debug"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/market-escrow/internal/logger"
)

// SafeGo запускает fn в отдельной горутине. Паника логируется со стеком и
// не роняет процесс: уведомления и фоновые задачи не должны останавливать API.
func SafeGo(fn func()) {
	go func() {
		defer recoverPanic("goroutine")
		fn()
	}()
}

// SafeGoWithContext то же, что SafeGo, для функций, живущих до отмены ctx.
func SafeGoWithContext(ctx context.Context, fn func(context.Context)) {
	go func() {
		defer recoverPanic("goroutine (with context)")
		fn(ctx)
	}()
}

func recoverPanic(where string) {
	if r := recover(); r != nil {
		// logger.Log читается в момент паники: Init мог заменить его после старта
		logger.Log.WithFields(logrus.Fields{
			"where": where,
			"panic": r,
			"stack": string(debug.Stack()),
		}).Error("паника в горутине")
	}
}
