package processor

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/user"
	"syscall"

	log "github.com/sirupsen/logrus"

	extr "github.com/stephieliu/NASA-PACE-Initial-Data-Processing/crawl/extractor"
)

type POSIXDescriptor struct {
	GID   uint32 `json:"gid"`
	Group string `json:"group,omitempty"`
	UID   uint32 `json:"uid"`
	User  string `json:"user,omitempty"`
	Size  int64  `json:"size"`
	Mode  string `json:"mode"`
	Type  string `json:"type"`
	INode uint64 `json:"inode"`
	MTime int64  `json:"mtime"`
	ATime int64  `json:"atime"`
	CTime int64  `json:"ctime"`
}

// InfoPrinter writes two tab separated records per granule: the GDAL
// description and the file attributes.
//
//	<path>\tgdal\t<json>
//	<path>\tposix\t<json>
type InfoPrinter struct {
	File    io.Writer
	Pattern string
}

func NewInfoPrinter(file io.Writer, pattern string) *InfoPrinter {
	return &InfoPrinter{File: file, Pattern: pattern}
}

// Process prints rootPath, or every file under it when it is a
// directory. Files GDAL cannot open are logged and skipped in a
// directory and fail a single file.
func (p *InfoPrinter) Process(rootPath string) error {
	fInfo, err := os.Stat(rootPath)
	if err != nil {
		return err
	}
	if !fInfo.IsDir() {
		return p.Print(rootPath)
	}

	paths, err := discover(rootPath, p.Pattern)
	if err != nil {
		return err
	}
	for _, path := range paths {
		if err := p.Print(path); err != nil {
			log.Warnf("Skipping %s: %v", path, err)
		}
	}
	return nil
}

func (p *InfoPrinter) Print(path string) error {
	geoFile, err := extr.ExtractGDALInfo(path)
	if err != nil {
		return err
	}
	out, err := json.Marshal(&geoFile)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(p.File, "%s\tgdal\t%s\n", path, string(out)); err != nil {
		return err
	}

	descr, err := DescribeFile(path)
	if err != nil {
		log.Debugf("No posix record for %s: %v", path, err)
		return nil
	}
	out, err = json.Marshal(&descr)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(p.File, "%s\tposix\t%s\n", path, string(out))
	return err
}

// DescribeFile stats path. Owner names are left empty when the ids do
// not resolve.
func DescribeFile(path string) (*POSIXDescriptor, error) {
	finfo, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	var rec syscall.Stat_t
	if err := syscall.Lstat(path, &rec); err != nil {
		return nil, err
	}

	descr := &POSIXDescriptor{
		GID:   rec.Gid,
		UID:   rec.Uid,
		INode: rec.Ino,
		MTime: rec.Mtim.Sec,
		CTime: rec.Ctim.Sec,
		ATime: rec.Atim.Sec,
		Size:  finfo.Size(),
		Mode:  finfo.Mode().String(),
		Type:  "file",
	}
	if gid, err := user.LookupGroupId(fmt.Sprintf("%d", rec.Gid)); err == nil {
		descr.Group = gid.Name
	}
	if uid, err := user.LookupId(fmt.Sprintf("%d", rec.Uid)); err == nil {
		descr.User = uid.Username
	}
	return descr, nil
}
