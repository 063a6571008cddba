package app

import (
	"context"
	"errors"

	"sengketa/internal/docstore"
	"sengketa/internal/domain"
	"sengketa/internal/engine"
)

// Upload is a document submitted together with a lifecycle operation.
type Upload struct {
	Name string
	Data []byte
}

// Service fronts the engine for callers that attach documents. Uploads are
// stored before the transition is submitted; a rejected transition leaves
// the stored document in place.
type Service struct {
	Engine engine.Engine
	Docs   docstore.Service
}

// StoreDocument stores an upload and maps store failures onto the engine's
// error taxonomy.
func (s Service) StoreDocument(ctx context.Context, up Upload) (string, error) {
	ref, err := s.Docs.Put(ctx, up.Data, up.Name)
	if err != nil {
		return "", documentError(err, "")
	}
	return ref, nil
}

// Document resolves ref to its stored file.
func (s Service) Document(ctx context.Context, ref string) (docstore.Document, error) {
	doc, err := s.Docs.Get(ctx, ref)
	if err != nil {
		return docstore.Document{}, documentError(err, ref)
	}
	return doc, nil
}

// DocumentMetadata resolves ref to its metadata record.
func (s Service) DocumentMetadata(ctx context.Context, ref string) (docstore.Metadata, error) {
	meta, err := s.Docs.Stat(ctx, ref)
	if err != nil {
		return docstore.Metadata{}, documentError(err, ref)
	}
	return meta, nil
}

// resolveRef returns the reference to submit: the stored upload when one is
// given, otherwise ref after checking it resolves.
func (s Service) resolveRef(ctx context.Context, op domain.Operation, ref string, up *Upload) (string, error) {
	if up != nil {
		return s.StoreDocument(ctx, *up)
	}
	if ref == "" {
		return "", nil
	}
	if _, err := s.Docs.Stat(ctx, ref); err != nil {
		err = documentError(err, ref)
		if te, ok := engine.AsTransitionError(err); ok {
			te.Operation = string(op)
		}
		return "", err
	}
	return ref, nil
}

func documentError(err error, ref string) error {
	switch {
	case errors.Is(err, docstore.ErrNotFound):
		te := engine.ArgumentError(engine.CodeUnknownDocument, "", "document "+ref+" not found")
		te.Err = err
		return te
	case errors.Is(err, docstore.ErrInvalidReference),
		errors.Is(err, docstore.ErrUnsupportedType),
		errors.Is(err, docstore.ErrEmpty):
		te := engine.ArgumentError(engine.CodeInvalidArgument, "", err.Error())
		return te
	}
	return engine.Unavailable(engine.CodeDocumentStore, err)
}

// Decide records a decision, storing upload first when present. final
// selects finalization.
func (s Service) Decide(ctx context.Context, caller string, in engine.DecisionInput, up *Upload, final bool) (domain.Receipt, error) {
	op := domain.OpAddDecision
	if final {
		op = domain.OpFinalizeDecision
	}
	ref, err := s.resolveRef(ctx, op, in.DocumentRef, up)
	if err != nil {
		return domain.Receipt{}, err
	}
	in.DocumentRef = ref
	if final {
		return s.Engine.FinalizeDecision(ctx, caller, in)
	}
	return s.Engine.AddDecision(ctx, caller, in)
}

// Cancel cancels a case with an optional supporting document.
func (s Service) Cancel(ctx context.Context, caller string, caseID int64, ref string, up *Upload) (domain.Receipt, error) {
	ref, err := s.resolveRef(ctx, domain.OpCancelCase, ref, up)
	if err != nil {
		return domain.Receipt{}, err
	}
	return s.Engine.CancelCase(ctx, caller, caseID, ref)
}

// Withdraw withdraws a case with an optional supporting document.
func (s Service) Withdraw(ctx context.Context, caller string, caseID int64, ref string, up *Upload) (domain.Receipt, error) {
	ref, err := s.resolveRef(ctx, domain.OpWithdrawCase, ref, up)
	if err != nil {
		return domain.Receipt{}, err
	}
	return s.Engine.WithdrawCase(ctx, caller, caseID, ref)
}
