package api

// Getters for the election a request targets. An empty ID means the active
// election.

func (r *ElectionRequest) GetElectionID() string { return r.ElectionID }
func (r *Settings) GetElectionID() string { return r.ElectionID }
func (r *ImportRequest) GetElectionID() string { return r.ElectionID }
func (r *ListCandidatesRequest) GetElectionID() string { return r.ElectionID }
func (r *AddCandidateRequest) GetElectionID() string { return r.ElectionID }
func (r *UpdateCandidateRequest) GetElectionID() string { return r.ElectionID }
func (r *UploadPhotoRequest) GetElectionID() string { return r.ElectionID }
func (r *DeleteRequest) GetElectionID() string { return r.ElectionID }
func (r *AddVoterRequest) GetElectionID() string { return r.ElectionID }
func (r *ResetRequest) GetElectionID() string { return r.ElectionID }
func (r *GetResultsRequest) GetElectionID() string { return r.ElectionID }
func (r *GetOverviewRequest) GetElectionID() string { return r.ElectionID }
