package core

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/huangsam/ceflow/core/repo"
	"github.com/huangsam/ceflow/schema"
)

// SendIssueNotificationsStep streams the issue cache and hands notifications to the sink.
type SendIssueNotificationsStep struct{}

func (SendIssueNotificationsStep) Description() string { return "Send issue notifications" }

func (SendIssueNotificationsStep) Execute(ctx context.Context, rc *repo.RunContext) error {
	defer func() { _ = rc.Issues.Discard() }()

	root, err := rc.Tree.Root()
	if err != nil {
		return err
	}
	date, err := rc.Metadata.AnalysisDate()
	if err != nil {
		return err
	}
	branch, err := rc.Metadata.Branch()
	if err != nil {
		return err
	}
	var leakStart *int64
	if p, err := rc.Periods.Period(1); err == nil {
		leakStart = &p.SnapshotDate
	}

	// 1. Gather statistics and changes in one pass over the cache
	project := schema.NewIssueStatistics()
	byAssignee := make(map[string]*schema.IssueStatistics)
	var changes []schema.IssueChangeDetail
	err = rc.Issues.Iterate(func(issue schema.Issue) error {
		if issue.IsNew {
			onLeak := leakStart == nil || issue.CreationDate >= *leakStart
			project.Add(issue, onLeak)
			if issue.Assignee != "" {
				s, ok := byAssignee[issue.Assignee]
				if !ok {
					s = schema.NewIssueStatistics()
					byAssignee[issue.Assignee] = s
				}
				s.Add(issue, onLeak)
			}
			return nil
		}
		if len(issue.Changes) > 0 {
			changes = append(changes, schema.IssueChangeDetail{
				IssueKey:     issue.Key,
				RuleKey:      issue.RuleKey,
				ComponentKey: issue.ComponentKey,
				Assignee:     issue.Assignee,
				Changes:      issue.Changes,
			})
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to read issue cache: %w", err)
	}

	base := schema.Notification{
		ProjectUUID: root.UUID,
		ProjectKey:  root.Key,
		ProjectName: root.Name,
		AnalysisAt:  date,
	}
	if !branch.IsMain() {
		base.Branch = branch.Name
	}
	sent := 0
	deliver := func(n schema.Notification) error {
		if err := rc.Sink.Deliver(ctx, n); err != nil {
			return fmt.Errorf("failed to deliver %s notification: %w", n.Type, err)
		}
		sent++
		return nil
	}

	// 2. New issues for the project
	if project.HasIssues() {
		ok, err := rc.Sink.HasSubscribers(ctx, root.UUID, []schema.NotificationType{schema.NewIssuesNotification})
		if err != nil {
			return err
		}
		if ok {
			n := base
			n.Type, n.Statistics = schema.NewIssuesNotification, project
			if err := deliver(n); err != nil {
				return err
			}
		}
	}

	// 3. New issues per assignee
	if len(byAssignee) > 0 {
		ok, err := rc.Sink.HasSubscribers(ctx, root.UUID, []schema.NotificationType{schema.MyNewIssuesNotification})
		if err != nil {
			return err
		}
		for _, a := range slices.Sorted(maps.Keys(byAssignee)) {
			if !ok {
				break
			}
			n := base
			n.Type, n.Assignee, n.Statistics = schema.MyNewIssuesNotification, a, byAssignee[a]
			if err := deliver(n); err != nil {
				return err
			}
		}
	}

	// 4. Changes on existing issues
	if len(changes) > 0 {
		ok, err := rc.Sink.HasSubscribers(ctx, root.UUID, []schema.NotificationType{schema.IssueChangesNotification})
		if err != nil {
			return err
		}
		for i := range changes {
			if !ok {
				break
			}
			n := base
			n.Type, n.Assignee, n.IssueChange = schema.IssueChangesNotification, changes[i].Assignee, &changes[i]
			if err := deliver(n); err != nil {
				return err
			}
		}
	}

	rc.Stats.Add("new_issues", project.IssuesOnLeak+project.IssuesOffLeak)
	rc.Stats.Add("changed_issues", len(changes))
	rc.Stats.Add("notifications", sent)
	return nil
}
