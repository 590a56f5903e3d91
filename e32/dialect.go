package e32

import "context"

// Dialect is the command set spoken with the module, chosen at
// construction with WithDialect. Chunked transfers are identical for every
// dialect; only configuration and housekeeping commands differ.
type Dialect interface {
	Name() string

	configure(ctx context.Context, d *Driver) error
	parameters(ctx context.Context, d *Driver) ([]byte, error)
	version(ctx context.Context, d *Driver) ([]byte, error)
	reset(ctx context.Context, d *Driver) error
}

type binaryDialect struct {
	frame ConfigFrame
}

// Binary is the E32 register dialect: C0/C2 write, C1 read, C3 version,
// C4 reset. frame is written by Open and Configure.
func Binary(frame ConfigFrame) Dialect {
	return &binaryDialect{frame: frame}
}

func (b *binaryDialect) Name() string { return "binary" }

func (b *binaryDialect) configure(ctx context.Context, d *Driver) error {
	_, err := d.configureFrame(ctx, b.frame)
	return err
}

func (b *binaryDialect) parameters(ctx context.Context, d *Driver) ([]byte, error) {
	frame, err := d.readParameters(ctx)
	if err != nil {
		return nil, err
	}
	return frame.Bytes(), nil
}

func (b *binaryDialect) version(ctx context.Context, d *Driver) ([]byte, error) {
	v, err := d.readVersion(ctx)
	if err != nil {
		return nil, err
	}
	return v.Raw, nil
}

func (b *binaryDialect) reset(ctx context.Context, d *Driver) error {
	return d.restart(ctx)
}
