package audit

import (
	"context"

	"github.com/Shepherdphiri/z-radio/pkg/log"
)

// Audit actions for broadcasts.
const (
	ActionCreateBroadcast = "broadcast.create"
	ActionUpdateBroadcast = "broadcast.update"
	ActionStopBroadcast   = "broadcast.stop"
)

// Field constants for audit entries.
const (
	FieldAction = "action"
	FieldActor  = "actor"
	FieldDetail = "detail"
)

// Log emits a structured audit log entry via the context logger.
// actor identifies the caller, usually its address since connections are anonymous.
func Log(ctx context.Context, action, actor, broadcastID, roomID, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(FieldActor, actor).
		Str(log.FieldBroadcastID, broadcastID).
		Str(log.FieldRoomID, roomID).
		Msg(msg)
}

// LogWithDetail emits an audit log with extra detail field.
func LogWithDetail(ctx context.Context, action, actor, broadcastID, roomID, detail, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(FieldActor, actor).
		Str(log.FieldBroadcastID, broadcastID).
		Str(log.FieldRoomID, roomID).
		Str(FieldDetail, detail).
		Msg(msg)
}
