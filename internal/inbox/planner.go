package inbox

import (
	"campaign-inbox-go/internal/ai"
	"campaign-inbox-go/internal/model"
)

// ActionKind enumerates everything the executor knows how to do.
type ActionKind string

const (
	ActionBlock              ActionKind = "BLOCK"
	ActionRemoveMemberships  ActionKind = "REMOVE_MEMBERSHIPS"
	ActionCloneForSubstitute ActionKind = "CLONE_FOR_SUBSTITUTE"
	ActionCreateContact      ActionKind = "CREATE_CONTACT"
	ActionForward            ActionKind = "FORWARD_TO_SALESPERSON"
	ActionNotifyStaff        ActionKind = "NOTIFY_STAFF"
)

// Action is one planned step. Only the fields relevant to its kind are
// set.
type Action struct {
	Kind        ActionKind
	BlockReason model.BlockReason
	Contact     ai.ExtractedContact
}

// PlanActions maps a classified reply onto the ordered action list the
// executor will run. Pure: it touches no storage and produces nothing for
// dispositions that carry no side effects. A lead that is already blocked
// yields no blocking or unsubscribe actions, so redelivered or repeated
// negative replies stay idempotent.
func PlanActions(classification model.Classification, lead *model.Lead, result ai.Result) []Action {
	blocked := lead != nil && lead.IsBlocked()

	switch classification {
	case model.ClassUnsubscribe:
		if lead == nil || blocked {
			return nil
		}
		return []Action{
			{Kind: ActionBlock, BlockReason: model.BlockReasonUnsubscribe},
			{Kind: ActionRemoveMemberships},
			{Kind: ActionNotifyStaff, BlockReason: model.BlockReasonUnsubscribe},
		}

	case model.ClassNotInterested:
		if lead == nil || blocked {
			return nil
		}
		return []Action{
			{Kind: ActionBlock, BlockReason: model.BlockReasonNotInterested},
			{Kind: ActionRemoveMemberships},
			{Kind: ActionNotifyStaff, BlockReason: model.BlockReasonNotInterested},
		}

	case model.ClassBounce:
		if lead == nil || blocked {
			return nil
		}
		return []Action{
			{Kind: ActionBlock, BlockReason: model.BlockReasonBounce},
			{Kind: ActionRemoveMemberships},
		}

	case model.ClassOOO:
		if lead == nil {
			return nil
		}
		var actions []Action
		for _, contact := range substituteContacts(result) {
			actions = append(actions, Action{Kind: ActionCloneForSubstitute, Contact: contact})
		}
		return actions

	case model.ClassRedirect:
		var actions []Action
		for _, contact := range substituteContacts(result) {
			actions = append(actions, Action{Kind: ActionCreateContact, Contact: contact})
		}
		return actions

	case model.ClassInterested:
		return []Action{{Kind: ActionForward}}

	case model.ClassOther, model.ClassInternalWarmup, model.ClassNotOurCampaign:
		return nil
	}
	return nil
}

// substituteContacts prefers the structured contact extraction and falls
// back to bare addresses.
func substituteContacts(result ai.Result) []ai.ExtractedContact {
	if len(result.ExtractedData.Contacts) > 0 {
		return result.ExtractedData.Contacts
	}
	contacts := make([]ai.ExtractedContact, 0, len(result.ExtractedEmails))
	for _, addr := range result.ExtractedEmails {
		contacts = append(contacts, ai.ExtractedContact{Email: addr})
	}
	return contacts
}
