package concat

// Plan computes what Apply would do without touching anything: no
// backup is taken, the destination is not written, and nothing is
// journaled. It runs the same validation as Apply, so precondition and
// readability failures are reported the same way.
func (s *Service) Plan(req Request) (*Result, error) {
	st, err := s.prepare(req)
	if err != nil {
		return nil, err
	}

	res := &Result{Dest: st.destPath}

	if Satisfied(st.dest, st.src, req.Force) {
		res.Checksum = Checksum(st.dest)
		res.Size = int64(len(st.dest))
		res.Mode = st.destMode
		return res, nil
	}

	content := compose(st.dest, st.src, req.Force)
	res.Changed = true
	res.Checksum = Checksum(content)
	res.Size = int64(len(content))
	res.Mode = effectiveMode(req.Mode, st)
	return res, nil
}
