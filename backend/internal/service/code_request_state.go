package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"valve-vault/backend/internal/model"
	"valve-vault/backend/internal/repository"
	pkgerrors "valve-vault/backend/pkg/errors"
	"valve-vault/backend/pkg/notify"
)

// ── 编码申请状态机 ──
//
//	pending ──claim──▶ claimed ──propose──▶ code_proposed ──approve──▶ approved
//	   ▲                  │                     │  ▲    └──reject───▶ rejected
//	   └──release/expire──┘◀──────release───────┘  └─edit─┘

type transition struct {
	from []string
	to   string // 空表示状态不变
}

var requestTransitions = map[string]transition{
	model.AuditClaim:        {from: []string{model.RequestStatusPending}, to: model.RequestStatusClaimed},
	model.AuditRelease:      {from: []string{model.RequestStatusClaimed, model.RequestStatusCodeProposed}, to: model.RequestStatusPending},
	model.AuditForceRelease: {from: []string{model.RequestStatusClaimed, model.RequestStatusCodeProposed}, to: model.RequestStatusPending},
	model.AuditClaimExpired: {from: []string{model.RequestStatusClaimed}, to: model.RequestStatusPending},
	model.AuditCodeProposed: {from: []string{model.RequestStatusClaimed}, to: model.RequestStatusCodeProposed},
	model.AuditCodeEdited:   {from: []string{model.RequestStatusCodeProposed}},
	model.AuditApproval:     {from: []string{model.RequestStatusCodeProposed}, to: model.RequestStatusApproved},
	model.AuditRejection:    {from: []string{model.RequestStatusCodeProposed}, to: model.RequestStatusRejected},
	model.AuditDeletion:     {from: []string{model.RequestStatusPending, model.RequestStatusClaimed, model.RequestStatusRejected}},
}

// nextStatus 返回 action 作用于 status 后的新状态
func nextStatus(action, status string) (string, bool) {
	t, ok := requestTransitions[action]
	if !ok {
		return "", false
	}
	for _, f := range t.from {
		if f == status {
			if t.to == "" {
				return status, true
			}
			return t.to, true
		}
	}
	return "", false
}

// stateError 不允许的迁移：认领被占用时带出持有人，其余为状态错误
func stateError(action string, req *model.CodeRequest) error {
	if req.IsTerminal() {
		return ErrWrongState
	}
	if action == model.AuditClaim && req.ClaimedBy != nil {
		holder := &pkgerrors.AlreadyClaimedError{Holder: *req.ClaimedBy}
		if req.ClaimedByName != nil {
			holder.HolderName = *req.ClaimedByName
		}
		return holder
	}
	return ErrWrongState
}

// ── 单行原子迁移 ──

// mutation 在已加锁的申请上执行具体变更，返回需要追加的审计内容
type mutation func(tx *repository.Repository, req *model.CodeRequest, now time.Time) (AuditEntry, error)

// requestWorkflow 所有申请状态迁移的公共路径：
// 事务内 SELECT ... FOR UPDATE → 校验迁移 → 变更 → version 条件更新 → 追加一条审计 → 提交后通知
type requestWorkflow struct {
	repo     *repository.Repository
	audit    AuditLedger
	notifier notify.Notifier
	logger   *zap.Logger
}

func (w *requestWorkflow) apply(ctx context.Context, id string, actor Actor, action string, fn mutation) (*model.CodeRequest, error) {
	var out *model.CodeRequest
	now := time.Now()

	err := w.repo.Transaction(ctx, func(tx *repository.Repository) error {
		req, err := tx.CodeRequest.GetByIDForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRequestNotFound
			}
			return err
		}

		prev := req.Status
		next, ok := nextStatus(action, prev)
		if !ok {
			return stateError(action, req)
		}

		entry, err := fn(tx, req, now)
		if err != nil {
			return err
		}
		req.Status = next
		req.UpdatedBy = &actor.ID

		if action == model.AuditDeletion {
			err = tx.CodeRequest.SoftDelete(ctx, req, actor.ID)
		} else {
			err = tx.CodeRequest.Update(ctx, req)
		}
		if err != nil {
			return err
		}

		entry.SubjectType = model.SubjectCodeRequest
		entry.SubjectID = req.RequestID
		entry.Action = action
		if entry.Field == "" {
			entry.Field = "status"
			entry.Previous = &prev
			entry.New = &next
		}
		if _, err := w.audit.Append(ctx, tx, actor, entry); err != nil {
			return err
		}

		out = req
		return nil
	})
	if err != nil {
		if errors.Is(err, pkgerrors.ErrAlreadyClaimed) {
			claimConflicts.Inc()
		}
		if pkgerrors.Kind(err) == nil {
			w.logger.Error("编码申请状态迁移失败",
				zap.String("id", id),
				zap.String("action", action),
				zap.String("actor", actor.ID),
				zap.Error(err),
			)
		}
		return nil, err
	}

	requestTransitionsTotal.WithLabelValues(action).Inc()
	w.notifier.Publish(ctx, notify.Event{
		Topic:     notify.TopicCodeRequests,
		SubjectID: out.RequestID,
		Kind:      action,
		At:        now,
	})
	return out, nil
}
