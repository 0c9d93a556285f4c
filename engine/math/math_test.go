package math

import "testing"

const eps = 1e-5

func TestMat4InverseRoundTrip(t *testing.T) {
	tr := Transform{
		Position: Vec3{1, -2, 3},
		Rotation: NewQuatFromEuler(0.3, -0.7, 1.1),
		Scale:    Vec3{2, 0.5, 1.5},
	}
	m := tr.Matrix()
	if got := m.Mul(m.Inverse()); !got.Compare(NewMat4Identity(), eps) {
		t.Fatalf("m * inverse(m) = %v, want identity", got.Data)
	}
}

func TestTransformMatrixOrder(t *testing.T) {
	tr := Transform{
		Position: Vec3{10, 0, 0},
		Rotation: NewQuatFromAxisAngle(Vec3{0, 0, 1}, HALF_PI),
		Scale:    Vec3{2, 2, 2},
	}
	// scale first: (1,0,0) -> (2,0,0), rotate 90 about z -> (0,2,0), translate -> (10,2,0)
	got := tr.Matrix().MulVec4(Vec4{1, 0, 0, 1}).ToVec3()
	if !got.Compare(Vec3{10, 2, 0}, eps) {
		t.Fatalf("transformed point = %v, want (10,2,0)", got)
	}
}

func TestQuaternionRotateMatchesMatrix(t *testing.T) {
	q := NewQuatFromAxisAngle(Vec3{1, 1, 0}, 0.8)
	v := Vec3{0.2, -1, 3}
	a := q.Rotate(v)
	b := q.RotationMatrix().MulVec4(v.ToVec4(1)).ToVec3()
	if !a.Compare(b, eps) {
		t.Fatalf("quaternion rotate %v != matrix rotate %v", a, b)
	}
}

func TestZConvertMapsUpToScreenUp(t *testing.T) {
	// world +z (up) becomes view +y, world +y (forward) becomes view -z
	up := ZConvert.MulVec4(Vec4{0, 0, 1, 0}).ToVec3()
	fwd := ZConvert.MulVec4(Vec4{0, 1, 0, 0}).ToVec3()
	if !up.Compare(Vec3{0, 1, 0}, eps) || !fwd.Compare(Vec3{0, 0, -1}, eps) {
		t.Fatalf("ZConvert up=%v forward=%v", up, fwd)
	}
}

func TestPerspectiveDepthRange(t *testing.T) {
	p := PerspectiveProjection(90, 1)
	near := p.MulVec4(Vec4{0, 0, -PerspectiveNear, 1})
	far := p.MulVec4(Vec4{0, 0, -PerspectiveFar, 1})
	if d := near.Z / near.W; Abs(d) > eps {
		t.Errorf("near plane depth = %f, want 0", d)
	}
	if d := far.Z / far.W; Abs(d-1) > eps {
		t.Errorf("far plane depth = %f, want 1", d)
	}
	top := p.MulVec4(Vec4{0, 1, -1, 1})
	if top.Y/top.W >= 0 {
		t.Errorf("view-space up must map to negative clip y, got %f", top.Y/top.W)
	}
}

func TestClamp(t *testing.T) {
	if Clamp(5, 0, 3) != 3 || Clamp(-1, 0, 3) != 0 || Clamp[float32](1.5, 0, 3) != 1.5 {
		t.Fatalf("Clamp mismatch")
	}
}
