package types

// Validate checks a join declaration before it reaches the coordinator.
func (p *JoinPayload) Validate() error {
	if p.Role != RoleTeacher && p.Role != RoleStudent {
		return ErrInvalidRole
	}
	if len(p.DisplayName) < 1 || len(p.DisplayName) > 50 {
		return ErrInvalidDisplayName
	}
	return nil
}

// Validate checks a poll definition: non-empty question, at least one
// option with non-empty text, and a positive timer.
func (p *CreatePollPayload) Validate() error {
	if p.Question == "" {
		return ErrEmptyQuestion
	}
	if len(p.Options) == 0 {
		return ErrNoOptions
	}
	for _, option := range p.Options {
		if option.Text == "" {
			return ErrEmptyOptionText
		}
	}
	if p.TimerSeconds <= 0 {
		return ErrInvalidTimer
	}
	return nil
}

// Validate checks a vote submission.
func (p *SubmitAnswerPayload) Validate() error {
	if p.PollID == "" {
		return ErrMissingPollID
	}
	if p.OptionText == "" {
		return ErrEmptyAnswer
	}
	return nil
}

// Validate checks a kick request.
func (p *KickPayload) Validate() error {
	if p.DisplayName == "" {
		return ErrMissingKickTarget
	}
	return nil
}

// Validate checks a chat line.
func (p *ChatPayload) Validate() error {
	if len(p.Text) < 1 || len(p.Text) > 2000 {
		return ErrEmptyChatText
	}
	return nil
}
