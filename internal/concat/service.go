package concat

import (
	"bytes"
	"fmt"
	"io/fs"
	"path/filepath"
)

// Service performs concat operations: it propagates a source file's
// bytes into a destination file, appending by default or replacing with
// force, preserving prior content in a BackupStore and recording
// outcomes in a Journal.
//
// The destination reaches its final state through a single atomic
// write, and the backup (when requested) is completed first. A failure
// at any step leaves the destination as it was.
type Service struct {
	fs      FileSystem
	store   BackupStore
	journal Journal
	logger  Logger
	clock   Clock
	idgen   IDGenerator
}

// NewService creates a Service. All collaborators are required; use the
// no-op Logger and Journal implementations to disable those concerns.
func NewService(fsys FileSystem, store BackupStore, journal Journal, logger Logger, clock Clock, idgen IDGenerator) *Service {
	return &Service{
		fs:      fsys,
		store:   store,
		journal: journal,
		logger:  logger,
		clock:   clock,
		idgen:   idgen,
	}
}

// opState carries the validated inputs of one operation between the
// shared preparation step and Apply or Plan.
type opState struct {
	src        []byte
	srcSum     string
	dest       []byte
	destPath   string
	destExists bool
	destMode   fs.FileMode
}

// prepare validates the request, resolves the destination path, and
// reads both files. All precondition and readability failures surface
// here, before anything is written.
func (s *Service) prepare(req Request) (*opState, error) {
	if req.Src == "" || req.Dest == "" {
		return nil, errf(ErrPrecondition, nil, "src and dest are required")
	}

	srcInfo, err := s.fs.Stat(req.Src)
	if err != nil {
		return nil, errf(ErrPrecondition, err, "source %s not found", req.Src)
	}
	if srcInfo.IsDir() {
		return nil, errf(ErrPrecondition, nil, "source %s is a directory, must be a file", req.Src)
	}

	srcData, err := s.fs.ReadFile(req.Src)
	if err != nil {
		return nil, errf(ErrPrecondition, err, "source %s not readable", req.Src)
	}

	destPath, err := s.fs.Resolve(req.Dest)
	if err != nil {
		return nil, errf(classify(err), err, "resolving destination %s", req.Dest)
	}

	st := &opState{
		src:      srcData,
		srcSum:   Checksum(srcData),
		destPath: destPath,
	}

	destInfo, err := s.fs.Stat(destPath)
	switch {
	case err == nil:
		if destInfo.IsDir() {
			return nil, errf(ErrPrecondition, nil, "destination %s is a directory, must be a file", destPath)
		}
		st.destExists = true
		st.destMode = destInfo.Mode().Perm()
	case isNotExist(err):
		// Created on write.
	default:
		return nil, errf(classify(err), err, "stat destination %s", destPath)
	}

	if st.destExists {
		destData, err := s.fs.ReadFile(destPath)
		if err != nil {
			return nil, errf(classify(err), err, "reading destination %s", destPath)
		}
		st.dest = destData
	}

	return st, nil
}

// Apply performs one concat operation. It returns an unchanged Result
// when the destination already satisfies the request, and otherwise
// backs up (when requested), composes the new content, and writes it
// atomically. The destination's mode is kept unless req.Mode is set;
// mode only takes effect when content is written.
func (s *Service) Apply(req Request) (*Result, error) {
	st, err := s.prepare(req)
	if err != nil {
		return nil, err
	}

	res := &Result{Dest: st.destPath}

	if Satisfied(st.dest, st.src, req.Force) {
		res.Checksum = Checksum(st.dest)
		res.Size = int64(len(st.dest))
		res.Mode = st.destMode
		s.logger.Debug("destination already satisfied",
			"dest", st.destPath, "force", req.Force, "checksum", res.Checksum)
		s.record(req, st, res)
		return res, nil
	}

	if req.Backup && st.destExists {
		ref, err := s.store.Put(st.destPath, bytes.NewReader(st.dest), s.clock.Now())
		if err != nil {
			return nil, errf(classify(err), err, "backing up destination %s", st.destPath)
		}
		res.BackupRef = ref
		s.logger.Info("backup written",
			"dest", st.destPath, "ref", ref, "store", s.store.Name())
	}

	content := compose(st.dest, st.src, req.Force)
	mode := effectiveMode(req.Mode, st)

	if dir := filepath.Dir(st.destPath); dir != "." && dir != "/" {
		if err := s.fs.MkdirAll(dir, 0755); err != nil {
			return nil, errf(classify(err), err, "creating destination directory %s", dir)
		}
	}
	if err := s.fs.WriteFileAtomic(st.destPath, content, mode); err != nil {
		return nil, errf(classify(err), err, "writing destination %s", st.destPath)
	}

	res.Changed = true
	res.Checksum = Checksum(content)
	res.Size = int64(len(content))
	res.Mode = mode
	s.logger.Info("destination updated",
		"dest", st.destPath, "size", res.Size, "force", req.Force, "checksum", res.Checksum)
	s.record(req, st, res)
	return res, nil
}

// compose returns the content the destination should end up with.
func compose(dest, src []byte, force bool) []byte {
	if force {
		return src
	}
	content := make([]byte, 0, len(dest)+len(src))
	content = append(content, dest...)
	return append(content, src...)
}

// effectiveMode picks the mode for the written destination: the
// requested mode, else the existing mode, else 0644 for new files.
func effectiveMode(requested fs.FileMode, st *opState) fs.FileMode {
	if requested != 0 {
		return requested
	}
	if st.destExists {
		return st.destMode
	}
	return 0644
}

// record writes the apply to the journal. The destination has already
// reached its final state when this runs, so a journal failure must not
// turn a completed operation into an error; it is logged instead.
func (s *Service) record(req Request, st *opState, res *Result) {
	a := &Apply{
		ID:           s.idgen.New(),
		Src:          req.Src,
		Dest:         res.Dest,
		SrcChecksum:  st.srcSum,
		DestChecksum: res.Checksum,
		Changed:      res.Changed,
		Force:        req.Force,
		Size:         res.Size,
		Mode:         fmt.Sprintf("%04o", uint32(res.Mode)),
		AppliedAt:    s.clock.Now(),
	}
	if res.BackupRef != "" {
		a.BackupRef = res.BackupRef
		a.BackupStore = s.store.Name()
		a.Encrypted = s.store.Encrypted()
	}
	if err := s.journal.RecordApply(a); err != nil {
		s.logger.Warn("recording apply failed", "dest", res.Dest, "error", err)
	}
}
